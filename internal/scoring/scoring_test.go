package scoring

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finscore/internal/model"
)

var asOf = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func daysAgo(n int) time.Time { return asOf.AddDate(0, 0, -n) }

// ─── Health ─────────────────────────────────────────────────────────────────

func TestHealthScore_NoTransactionsIsPerfect(t *testing.T) {
	res := HealthScore(HealthInput{})
	assert.Equal(t, 100.0, res.Value)
	assert.Equal(t, "excellent", res.Level)
	require.Len(t, res.Factors, 4)
	for k, v := range res.Factors {
		assert.Zero(t, v, k)
	}
}

func TestHealthScore_Penalties(t *testing.T) {
	res := HealthScore(HealthInput{
		OverBudgetCount: 1,
		Amounts:         []float64{100, 200, 300},
		CategoryCount:   1,
		Trend:           model.TrendResult{Direction: model.TrendStable},
	})
	assert.Equal(t, 10.0, res.Factors[FactorBudgetAdherence])
	assert.Equal(t, 20.0, res.Factors[FactorConsistency])
	assert.Equal(t, 18.0, res.Factors[FactorDiversification])
	assert.Zero(t, res.Factors[FactorTrend])
	assert.Equal(t, 52.0, res.Value)
}

func TestHealthScore_ConsistentSpendAndRounding(t *testing.T) {
	res := HealthScore(HealthInput{
		Amounts:       []float64{50, 50, 50, 50},
		CategoryCount: 10,
		Trend:         model.TrendResult{Direction: model.TrendIncreasing, MagnitudePercent: 12.5},
	})
	assert.Zero(t, res.Factors[FactorConsistency])
	assert.Zero(t, res.Factors[FactorDiversification])
	assert.Equal(t, 12.5, res.Factors[FactorTrend])
	assert.Equal(t, 88.0, res.Value)
}

func TestHealthScore_DecreasingTrendIsNotRewarded(t *testing.T) {
	base := HealthInput{Amounts: []float64{10, 10}, CategoryCount: 3}
	stable := HealthScore(base)

	base.Trend = model.TrendResult{Direction: model.TrendDecreasing, MagnitudePercent: 80}
	decreasing := HealthScore(base)

	assert.Equal(t, stable.Value, decreasing.Value)
	assert.Zero(t, decreasing.Factors[FactorTrend])
}

func TestHealthScore_CapsAndBounds(t *testing.T) {
	res := HealthScore(HealthInput{
		OverBudgetCount: 9,
		Amounts:         []float64{1, 1000},
		CategoryCount:   1,
		Trend:           model.TrendResult{Direction: model.TrendIncreasing, MagnitudePercent: 900},
	})
	assert.Equal(t, 30.0, res.Factors[FactorBudgetAdherence])
	assert.Equal(t, 30.0, res.Factors[FactorTrend])
	assert.Equal(t, 2.0, res.Value)
	assert.Equal(t, "poor", res.Level)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		amounts := make([]float64, rng.Intn(20))
		for j := range amounts {
			amounts[j] = rng.Float64() * 1000
		}
		r := HealthScore(HealthInput{
			OverBudgetCount: rng.Intn(10),
			Amounts:         amounts,
			CategoryCount:   rng.Intn(15),
			Trend:           model.TrendResult{Direction: model.TrendIncreasing, MagnitudePercent: rng.Float64() * 500},
		})
		assert.GreaterOrEqual(t, r.Value, 0.0)
		assert.LessOrEqual(t, r.Value, 100.0)
		assert.Equal(t, r.Value, float64(int(r.Value)), "health value must be whole")
	}
}

// ─── Risk ───────────────────────────────────────────────────────────────────

func loan(id, person, amount string, status model.LendingStatus, occurred time.Time) model.LendingRecord {
	return model.LendingRecord{
		ID:         id,
		Person:     person,
		Amount:     dec(amount),
		Kind:       model.KindLend,
		Status:     status,
		OccurredOn: occurred,
	}
}

func TestLendingRisk_EmptyPortfolio(t *testing.T) {
	res, p := LendingRisk(nil, asOf)
	assert.Zero(t, res.Value)
	assert.Empty(t, res.Factors)
	assert.Equal(t, RiskLow, res.Level)
	assert.Zero(t, p.TotalCount)
	assert.Empty(t, HighRiskItems(nil, p, asOf))
	assert.Empty(t, LendingRecommendations(res, p))
}

func TestLendingRisk_ConcentratedCounterparty(t *testing.T) {
	var records []model.LendingRecord
	for i := 0; i < 8; i++ {
		records = append(records, loan(fmt.Sprintf("a%d", i), "Alice", "112.50", model.StatusActive, daysAgo(60)))
	}
	records = append(records,
		loan("b", "Bob", "50", model.StatusActive, daysAgo(60)),
		loan("c", "Carol", "50", model.StatusActive, daysAgo(60)),
	)

	res, p := LendingRisk(records, asOf)
	assert.Equal(t, "Alice", p.TopPerson)
	assert.InDelta(t, 0.9, p.TopPersonShare, 1e-9)
	assert.InDelta(t, 15.0, res.Factors[FactorPersonConcentration], 1e-9)
	assert.Equal(t, 25.0, res.Factors[FactorExposure])
	assert.Equal(t, 20.0, res.Factors[FactorCompletion])
	assert.Zero(t, res.Factors[FactorOverdueRatio])
	assert.Zero(t, res.Factors[FactorActivityVolatility])
	assert.InDelta(t, 60.0, res.Value, 1e-9)
	assert.Equal(t, RiskHigh, res.Level)

	items := HighRiskItems(records, p, asOf)
	require.Len(t, items, 1)
	assert.Equal(t, "Alice", items[0].Person)
	assert.True(t, items[0].Amount.Equal(dec("900")))

	recs := LendingRecommendations(res, p)
	require.Len(t, recs, 2)
	assert.Equal(t, TypeDiversify, recs[0].Type)
	assert.Equal(t, TypeCompletion, recs[1].Type)
}

func TestLendingRisk_OverdueAndExposure(t *testing.T) {
	due := daysAgo(3)
	borrow := loan("d", "Dan", "100", model.StatusActive, daysAgo(5))
	borrow.Kind = model.KindBorrow
	pastDue := loan("p", "Pam", "100", model.StatusPartial, daysAgo(40))
	pastDue.AmountPaid = dec("40")
	pastDue.DueOn = &due

	records := []model.LendingRecord{
		loan("o1", "Olga", "100", model.StatusOverdue, daysAgo(90)),
		loan("o2", "Otto", "200", model.StatusOverdue, daysAgo(90)),
		loan("c1", "Cid", "50", model.StatusCompleted, daysAgo(90)),
		borrow,
		pastDue,
	}

	res, p := LendingRisk(records, asOf)
	assert.Equal(t, 2, p.OverdueCount)
	assert.Equal(t, 4, p.OpenCount)
	assert.Equal(t, 1, p.CompletedCount)
	assert.Equal(t, 1, p.RecentCount)
	assert.True(t, p.LentOutstanding.Equal(dec("360")))
	assert.True(t, p.BorrowedOutstanding.Equal(dec("100")))

	// 2/5 overdue = 40%, capped at 30.
	assert.Equal(t, 30.0, res.Factors[FactorOverdueRatio])
	// 400 lent / 500 open = 0.8, which is not above 0.8.
	assert.Equal(t, 15.0, res.Factors[FactorExposure])
	// completion 20% -> 80/5 = 16.
	assert.InDelta(t, 16.0, res.Factors[FactorCompletion], 1e-9)
	// Otto holds 200/500 = 0.4 -> (0.4-0.3)/0.4*15 = 3.75.
	assert.InDelta(t, 3.75, res.Factors[FactorPersonConcentration], 1e-9)
	assert.InDelta(t, 64.75, res.Value, 1e-9)

	items := HighRiskItems(records, p, asOf)
	require.Len(t, items, 4)
	assert.Equal(t, "o2", items[0].RecordID)
	assert.Equal(t, "o1", items[1].RecordID)
	assert.Equal(t, "p", items[2].RecordID)
	assert.True(t, items[2].Outstanding.Equal(dec("60")))
	assert.Equal(t, "Otto", items[3].Person)
	assert.Empty(t, items[3].RecordID)

	recs := LendingRecommendations(res, p)
	require.NotEmpty(t, recs)
	assert.Equal(t, TypeFollowUp, recs[0].Type)
	assert.Equal(t, model.PriorityUrgent, recs[0].Priority)
}

func TestLendingRisk_ActivityVolatility(t *testing.T) {
	var records []model.LendingRecord
	for i := 0; i < 16; i++ {
		records = append(records, loan(fmt.Sprintf("r%02d", i), fmt.Sprintf("p%02d", i), "10", model.StatusCompleted, daysAgo(i)))
	}
	res, p := LendingRisk(records, asOf)
	assert.Equal(t, 16, p.RecentCount)
	assert.Equal(t, 3.0, res.Factors[FactorActivityVolatility])
	assert.Zero(t, res.Factors[FactorCompletion])
	assert.Equal(t, 5.0, res.Factors[FactorExposure], "no open exposure scores the floor")
}

func TestLendingRisk_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	statuses := []model.LendingStatus{model.StatusActive, model.StatusCompleted, model.StatusOverdue, model.StatusCancelled, model.StatusPartial}
	for i := 0; i < 100; i++ {
		n := rng.Intn(40)
		records := make([]model.LendingRecord, n)
		for j := range records {
			records[j] = loan(fmt.Sprint(j), fmt.Sprintf("p%d", rng.Intn(5)), fmt.Sprint(rng.Intn(1000)+1),
				statuses[rng.Intn(len(statuses))], daysAgo(rng.Intn(60)))
			if rng.Intn(2) == 0 {
				records[j].Kind = model.KindBorrow
			}
		}
		res, _ := LendingRisk(records, asOf)
		assert.GreaterOrEqual(t, res.Value, 0.0)
		assert.LessOrEqual(t, res.Value, 100.0)
	}
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, RiskLow, RiskLevel(29.9))
	assert.Equal(t, RiskMedium, RiskLevel(30))
	assert.Equal(t, RiskMedium, RiskLevel(59.9))
	assert.Equal(t, RiskHigh, RiskLevel(60))
}

// ─── Recommendations ────────────────────────────────────────────────────────

func TestSpendingRecommendations_Ordering(t *testing.T) {
	budget := dec("500")
	s := SpendingSignals{
		Categories: []model.CategoryInsight{
			{Category: "Food", Total: dec("600"), Count: 3, PercentageOfTotal: 100},
		},
		Budgets: []model.BudgetPerformance{
			{Category: "Food", BudgetAmount: dec("500"), SpentAmount: dec("600"), UtilizationPercentage: 120, Status: model.BudgetOverBudget},
			{Category: "Rent", BudgetAmount: dec("900"), SpentAmount: dec("100"), UtilizationPercentage: 11, Status: model.BudgetUnderBudget},
		},
		Trend: model.TrendResult{Direction: model.TrendIncreasing, MagnitudePercent: 400},
		Projections: []model.Projection{
			{ProjectedTotal: dec("1800"), Budget: &budget, Warning: &model.OverageWarning{Overage: dec("1300"), SuggestedDailyCap: dec("-5")}},
		},
		Health:       model.ScoreResult{Value: 22},
		Transactions: 3,
	}

	recs := SpendingRecommendations(s)
	var types []string
	for _, r := range recs {
		types = append(types, r.Type)
	}
	assert.Equal(t, []string{
		TypeFinancialHealth,
		TypeBudgetAlert,
		TypeTrendAlert,
		TypeOverageWarning,
		TypeOptimization,
	}, types)
	assert.Contains(t, recs[1].Description, "120.0%")

	assert.Equal(t, recs, SpendingRecommendations(s), "same input, same output")
}

func TestSpendingRecommendations_Thresholds(t *testing.T) {
	recs := SpendingRecommendations(SpendingSignals{
		Trend:  model.TrendResult{Direction: model.TrendIncreasing, MagnitudePercent: 20},
		Health: model.ScoreResult{Value: 10},
	})
	assert.Empty(t, recs, "20% is not above the alert threshold and health needs transactions")
	assert.NotNil(t, recs)
}

func TestSortRecommendations_Stable(t *testing.T) {
	recs := []model.Recommendation{
		{Title: "a", Priority: model.PriorityLow},
		{Title: "b", Priority: model.PriorityHigh},
		{Title: "c", Priority: model.PriorityLow},
		{Title: "d", Priority: model.PriorityUrgent},
		{Title: "e", Priority: model.PriorityHigh},
	}
	SortRecommendations(recs)
	var titles string
	for _, r := range recs {
		titles += r.Title
	}
	assert.Equal(t, "dbeac", titles)
}
