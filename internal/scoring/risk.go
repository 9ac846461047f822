package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// Risk factor keys. Each value is the number of points contributed.
const (
	FactorOverdueRatio        = "overdue_ratio"
	FactorExposure            = "exposure"
	FactorCompletion          = "completion"
	FactorPersonConcentration = "person_concentration"
	FactorActivityVolatility  = "activity_volatility"
)

// RecentActivityDays is the look-back used by the activity volatility factor.
const RecentActivityDays = 30

// Risk levels by score.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RiskLevel labels a risk score: low below 30, medium below 60, else high.
func RiskLevel(v float64) string {
	switch {
	case v < 30:
		return RiskLow
	case v < 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// LendingRisk scores the whole lending portfolio as of asOf. An empty
// portfolio scores 0 and carries no factors.
//
// Exposure and person concentration are measured over open records
// (active, partial or overdue) by their full amount.
func LendingRisk(records []model.LendingRecord, asOf time.Time) (model.ScoreResult, model.PortfolioSummary) {
	p := Portfolio(records, asOf)
	if p.TotalCount == 0 {
		return model.ScoreResult{Value: 0, Level: RiskLevel(0), Factors: map[string]float64{}}, p
	}

	total := float64(p.TotalCount)
	factors := make(map[string]float64, 5)

	factors[FactorOverdueRatio] = math.Min(30, float64(p.OverdueCount)/total*100)

	lent, borrowed := openAmounts(records)
	ratio := 0.0
	if sum := lent.Add(borrowed); sum.IsPositive() {
		ratio = lent.Div(sum).InexactFloat64()
	}
	switch {
	case ratio > 0.8:
		factors[FactorExposure] = 25
	case ratio > 0.6:
		factors[FactorExposure] = 15
	default:
		factors[FactorExposure] = 5
	}

	completionRate := float64(p.CompletedCount) / total * 100
	factors[FactorCompletion] = math.Min(20, math.Max(0, 100-completionRate)/5)

	factors[FactorPersonConcentration] = math.Min(15, concentrationFactor(p.TopPersonShare)*15)

	factors[FactorActivityVolatility] = math.Min(10, math.Max(0, float64(p.RecentCount-10)/2))

	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	value := model.Clamp(sum, 0, 100)
	return model.ScoreResult{Value: value, Level: RiskLevel(value), Factors: factors}, p
}

// concentrationFactor maps the top counterparty share onto [0,1]: nothing at
// 30% or less, everything at 70% or more.
func concentrationFactor(share float64) float64 {
	return model.Clamp((share-0.3)/0.4, 0, 1)
}

// Portfolio summarizes counts and open exposure of the records.
func Portfolio(records []model.LendingRecord, asOf time.Time) model.PortfolioSummary {
	p := model.PortfolioSummary{TotalCount: len(records)}
	since := model.DateOf(asOf).AddDate(0, 0, -RecentActivityDays)
	today := model.DateOf(asOf)

	byPerson := make(map[string]decimal.Decimal)
	var open decimal.Decimal
	for _, r := range records {
		switch r.Status {
		case model.StatusOverdue:
			p.OverdueCount++
		case model.StatusCompleted:
			p.CompletedCount++
		}
		if d := model.DateOf(r.OccurredOn); d.After(since) && !d.After(today) {
			p.RecentCount++
		}
		if !r.IsOpen() {
			continue
		}
		p.OpenCount++
		switch r.Kind {
		case model.KindLend:
			p.LentOutstanding = p.LentOutstanding.Add(r.Outstanding())
		case model.KindBorrow:
			p.BorrowedOutstanding = p.BorrowedOutstanding.Add(r.Outstanding())
		}
		byPerson[r.Person] = byPerson[r.Person].Add(r.Amount)
		open = open.Add(r.Amount)
	}

	if open.IsPositive() {
		var top decimal.Decimal
		for person, amt := range byPerson {
			// Ties go to the alphabetically first counterparty.
			if amt.GreaterThan(top) || (amt.Equal(top) && person < p.TopPerson) {
				top, p.TopPerson = amt, person
			}
		}
		p.TopPersonShare = top.Div(open).InexactFloat64()
	}
	return p
}

func openAmounts(records []model.LendingRecord) (lent, borrowed decimal.Decimal) {
	for _, r := range records {
		if !r.IsOpen() {
			continue
		}
		if r.Kind == model.KindBorrow {
			borrowed = borrowed.Add(r.Amount)
		} else {
			lent = lent.Add(r.Amount)
		}
	}
	return lent, borrowed
}

// HighRiskItems lists overdue or past-due open records, largest outstanding
// first, followed by the top counterparty when its share triggers the
// concentration factor.
func HighRiskItems(records []model.LendingRecord, p model.PortfolioSummary, asOf time.Time) []model.HighRiskItem {
	items := []model.HighRiskItem{}
	for _, r := range records {
		var reason string
		switch {
		case r.Status == model.StatusOverdue:
			reason = "marked overdue"
		case r.PastDue(asOf):
			reason = fmt.Sprintf("past due since %s", r.DueOn.Format(model.DateLayout))
		default:
			continue
		}
		items = append(items, model.HighRiskItem{
			RecordID:    r.ID,
			Person:      r.Person,
			Kind:        r.Kind,
			Status:      r.Status,
			Amount:      r.Amount,
			Outstanding: r.Outstanding(),
			DueOn:       r.DueOn,
			Reason:      reason,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Outstanding.Cmp(items[j].Outstanding); c != 0 {
			return c > 0
		}
		return items[i].RecordID < items[j].RecordID
	})

	if p.TopPerson != "" && concentrationFactor(p.TopPersonShare) > 0 {
		var amount, outstanding decimal.Decimal
		for _, r := range records {
			if r.Person == p.TopPerson && r.IsOpen() {
				amount = amount.Add(r.Amount)
				outstanding = outstanding.Add(r.Outstanding())
			}
		}
		items = append(items, model.HighRiskItem{
			Person:      p.TopPerson,
			Amount:      amount,
			Outstanding: outstanding,
			Reason:      fmt.Sprintf("holds %.0f%% of open exposure", p.TopPersonShare*100),
		})
	}
	return items
}
