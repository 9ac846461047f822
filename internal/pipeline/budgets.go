package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// Utilization status thresholds, in percent.
const (
	OverBudgetAbove = 100.0
	OnTrackAbove    = 80.0
)

// ClassifyUtilization maps a utilization percentage to a budget status.
// Exactly 100 is on track; only strictly above 100 is over budget.
func ClassifyUtilization(pct float64) model.BudgetStatus {
	switch {
	case pct > OverBudgetAbove:
		return model.BudgetOverBudget
	case pct > OnTrackAbove:
		return model.BudgetOnTrack
	default:
		return model.BudgetUnderBudget
	}
}

// Utilization is spent/amount*100, or 0 when amount is not positive. It is
// not capped at 100 so overspend stays visible.
func Utilization(spent, amount decimal.Decimal) float64 {
	if !amount.IsPositive() {
		return 0
	}
	return spent.Div(amount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

type budgetGroup struct {
	amount     decimal.Decimal
	start, end time.Time
}

// BudgetUtilization evaluates every active budget overlapping w against the
// matching transactions. Budgets sharing a category are merged into one row
// whose spend covers the union span of their windows clipped to w. Rows are
// ordered by category name.
func BudgetUtilization(budgets []model.BudgetRecord, txns []model.TransactionRecord, w model.PeriodWindow) ([]model.BudgetPerformance, model.BudgetSummary) {
	groups := make(map[string]*budgetGroup)
	for _, b := range budgets {
		if !b.IsActive || !b.Overlaps(w) {
			continue
		}
		g, ok := groups[b.Category]
		if !ok {
			g = &budgetGroup{start: model.DateOf(b.StartDate), end: model.DateOf(b.EndDate)}
			groups[b.Category] = g
		}
		g.amount = g.amount.Add(b.Amount)
		if s := model.DateOf(b.StartDate); s.Before(g.start) {
			g.start = s
		}
		if e := model.DateOf(b.EndDate); e.After(g.end) {
			g.end = e
		}
	}

	rows := make([]model.BudgetPerformance, 0, len(groups))
	var summary model.BudgetSummary
	for cat, g := range groups {
		var spent decimal.Decimal
		if span, ok := w.Intersect(g.start, g.end); ok {
			for _, t := range txns {
				if t.Category == cat && span.Contains(t.OccurredOn) {
					spent = spent.Add(t.Amount)
				}
			}
		}

		pct := Utilization(spent, g.amount)
		row := model.BudgetPerformance{
			Category:              cat,
			BudgetAmount:          g.amount,
			SpentAmount:           spent,
			RemainingAmount:       g.amount.Sub(spent),
			UtilizationPercentage: pct,
			Status:                ClassifyUtilization(pct),
		}
		rows = append(rows, row)

		summary.TotalBudgeted = summary.TotalBudgeted.Add(g.amount)
		summary.TotalSpent = summary.TotalSpent.Add(spent)
		if row.Status == model.BudgetOverBudget {
			summary.OverBudgetCount++
		}
	}
	summary.OverallUtilization = Utilization(summary.TotalSpent, summary.TotalBudgeted)

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Category < rows[j].Category
	})
	return rows, summary
}

// OverBudget returns the rows whose status is over_budget, in input order.
func OverBudget(rows []model.BudgetPerformance) []model.BudgetPerformance {
	var out []model.BudgetPerformance
	for _, r := range rows {
		if r.Status == model.BudgetOverBudget {
			out = append(out, r)
		}
	}
	return out
}
