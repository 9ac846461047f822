package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/theirongolddev/finscore/internal/model"
	"github.com/theirongolddev/finscore/internal/period"
	"github.com/theirongolddev/finscore/internal/scoring"
)

var today = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

const juneKey = "finscore:v1:analytics:u1:month:2025-06-01:2025-06-15:v1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(t *testing.T) (*Engine, *MockRepository, *MockCache) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	cache := NewMockCache(ctrl)
	e := New(repo, Config{Cache: cache, Clock: FixedClock(today), TTL: time.Minute})
	return e, repo, cache
}

func TestAnalyze_RequiresUser(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Analyze(context.Background(), "", "month", time.Time{})
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = e.AssessRisk(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestAnalyze_InvalidPeriod(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Analyze(context.Background(), "u1", "fortnight", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, period.ErrInvalidPeriod))
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return(nil, false, nil)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil)
	cache.EXPECT().Set(ctx, juneKey, gomock.Any(), time.Minute).Return(nil)

	report, err := e.Analyze(ctx, "u1", "month", time.Time{})
	require.NoError(t, err)

	assert.True(t, report.Summary.TotalAmount.IsZero())
	assert.Equal(t, 100.0, report.HealthScore.Value)
	assert.NotNil(t, report.CategoryBreakdown)
	assert.Empty(t, report.CategoryBreakdown)
	assert.Equal(t, model.TrendStable, report.Trend.Direction)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), report.Period.Start)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category_breakdown":[]`)
	assert.Contains(t, string(data), `"period":{"start":"2025-06-01","end":"2025-06-30","label":"month"}`)
}

func TestAnalyze_OverBudgetCategory(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	txns := []model.TransactionRecord{
		{ID: "t1", Category: "Food", Amount: dec("100"), OccurredOn: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "t2", Category: "Food", Amount: dec("200"), OccurredOn: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "t3", Category: "Food", Amount: dec("300"), OccurredOn: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
	}
	budgets := []model.BudgetRecord{{
		ID: "b1", Category: "Food", Amount: dec("500"), IsActive: true,
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}}

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return(nil, false, nil)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(txns, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(budgets, nil)
	cache.EXPECT().Set(ctx, juneKey, gomock.Any(), time.Minute).Return(nil)

	report, err := e.Analyze(ctx, "u1", "Month", time.Time{})
	require.NoError(t, err)

	require.Len(t, report.BudgetPerformance, 1)
	food := report.BudgetPerformance[0]
	assert.True(t, food.SpentAmount.Equal(dec("600")))
	assert.InDelta(t, 120.0, food.UtilizationPercentage, 1e-9)
	assert.Equal(t, model.BudgetOverBudget, food.Status)
	assert.True(t, food.RemainingAmount.Equal(dec("-100")))

	require.NotEmpty(t, report.Recommendations)
	var types []string
	for _, r := range report.Recommendations {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, scoring.TypeBudgetAlert)
	assert.Contains(t, types, scoring.TypeOverageWarning)
}

func TestAnalyze_CacheHitSkipsRepository(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	w, err := period.Resolve("month", today)
	require.NoError(t, err)
	want := BuildAnalytics("u1", w, nil, nil, today)
	want.Summary.TransactionCount = 42
	data, err := json.Marshal(want)
	require.NoError(t, err)

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return(data, true, nil)

	got, err := e.Analyze(ctx, "u1", "month", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 42, got.Summary.TransactionCount)
}

func TestAnalyze_CacheFailuresAreBypassed(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, false, errors.New("cache down"))
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil)
	cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache down"))

	report, err := e.Analyze(ctx, "u1", "week", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "week", report.Period.Label)
}

func TestAnalyze_CorruptCacheEntryIsRecomputed(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return([]byte("{not json"), true, nil)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil)
	cache.EXPECT().Set(ctx, juneKey, gomock.Any(), time.Minute).Return(nil)

	_, err := e.Analyze(ctx, "u1", "month", time.Time{})
	require.NoError(t, err)
}

func TestAnalyze_RepositoryErrorPropagates(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()
	boom := errors.New("db gone")

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return(nil, false, nil)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, boom)

	_, err := e.Analyze(ctx, "u1", "month", time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "loading transactions")
}

func TestAnalyze_CancelledContextDiscardsResult(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, juneKey).Return(nil, false, nil)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil)

	_, err := e.Analyze(ctx, "u1", "month", time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_ExplicitReferenceDate(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()
	ref := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, "finscore:v1:analytics:u1:quarter:2024-01-01:2025-06-15:v1").Return(nil, false, nil)
	repo.EXPECT().Transactions(ctx, "u1", model.PeriodWindow{
		Label: "quarter",
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}).Return(nil, nil)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil)
	cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	report, err := e.Analyze(ctx, "u1", "quarter", ref)
	require.NoError(t, err)
	require.NotEmpty(t, report.Projections)
	assert.Equal(t, 91, report.Projections[0].DaysElapsed, "a past window is fully elapsed")
	assert.Zero(t, report.Projections[0].DaysRemaining)
}

func TestAssessRisk_ConcentratedPortfolio(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	var records []model.LendingRecord
	for i := 0; i < 8; i++ {
		records = append(records, model.LendingRecord{
			ID: fmt.Sprintf("a%d", i), Person: "Alice", Amount: dec("112.5"),
			Kind: model.KindLend, Status: model.StatusActive, OccurredOn: today.AddDate(0, -3, 0),
		})
	}
	for _, p := range []string{"Bob", "Carol"} {
		records = append(records, model.LendingRecord{
			ID: p, Person: p, Amount: dec("50"),
			Kind: model.KindLend, Status: model.StatusActive, OccurredOn: today.AddDate(0, -3, 0),
		})
	}

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v7", nil)
	cache.EXPECT().Get(ctx, "finscore:v1:risk:u1:portfolio:2025-06-15:v7").Return(nil, false, nil)
	repo.EXPECT().Lendings(ctx, "u1").Return(records, nil)
	cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), time.Minute).Return(nil)

	report, err := e.AssessRisk(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, report.RiskScore.Factors[scoring.FactorPersonConcentration], 1e-9)
	assert.Equal(t, scoring.RiskHigh, report.RiskScore.Level)
	require.Len(t, report.HighRiskItems, 1)
	assert.Equal(t, "Alice", report.HighRiskItems[0].Person)
}

func TestAssessRisk_EmptyPortfolio(t *testing.T) {
	e, repo, cache := newTestEngine(t)
	ctx := context.Background()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil)
	cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, false, nil)
	repo.EXPECT().Lendings(ctx, "u1").Return(nil, nil)
	cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	report, err := e.AssessRisk(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, report.RiskScore.Value)
	assert.Empty(t, report.RiskScore.Factors)
	assert.Empty(t, report.HighRiskItems)
	assert.Empty(t, report.Recommendations)
}

func TestNew_WithoutCacheOrClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	ctx := context.Background()

	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil).Times(2)
	repo.EXPECT().Lendings(ctx, "u1").Return(nil, nil).Times(2)

	e := New(repo, Config{})
	first, err := e.AssessRisk(ctx, "u1")
	require.NoError(t, err)
	second, err := e.AssessRisk(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.RiskScore, second.RiskScore)
}

func TestAnalyze_NextDayMissesYesterdaysEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	cache := NewMockCache(ctrl)
	ctx := context.Background()
	lateNight := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)

	var keys []string
	repo.EXPECT().DatasetVersion(ctx, "u1").Return("v1", nil).Times(2)
	cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, false, nil).Times(2)
	repo.EXPECT().Transactions(ctx, "u1", gomock.Any()).Return(nil, nil).Times(2)
	repo.EXPECT().Budgets(ctx, "u1").Return(nil, nil).Times(2)
	cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), time.Minute).
		DoAndReturn(func(_ context.Context, key string, _ []byte, _ time.Duration) error {
			keys = append(keys, key)
			return nil
		}).Times(2)

	var reports []*model.AnalyticsReport
	for _, now := range []time.Time{lateNight, lateNight.Add(2 * time.Minute)} {
		e := New(repo, Config{Cache: cache, Clock: FixedClock(now), TTL: time.Minute})
		r, err := e.Analyze(ctx, "u1", "month", time.Time{})
		require.NoError(t, err)
		reports = append(reports, r)
	}

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Equal(t, "finscore:v1:analytics:u1:month:2025-06-01:2025-06-16:v1", keys[1])
	assert.Equal(t, 15, reports[0].Projections[0].DaysElapsed)
	assert.Equal(t, 16, reports[1].Projections[0].DaysElapsed)
}
