package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// ProjectionInput is the period-to-date state a projection extrapolates.
type ProjectionInput struct {
	Category      string
	TotalSpend    decimal.Decimal
	DaysElapsed   int
	DaysRemaining int
	Budget        *decimal.Decimal
}

// Project extrapolates the period-to-date daily average over the whole
// period. This is a straight line through the origin, not a time-series
// forecast: weekly seasonality and one-off purchases are not modelled.
func Project(in ProjectionInput) model.Projection {
	daily := model.DivAtLeastOne(in.TotalSpend, in.DaysElapsed)
	length := in.DaysElapsed + in.DaysRemaining
	if length < 0 {
		length = 0
	}

	p := model.Projection{
		Category:       in.Category,
		TotalSpend:     in.TotalSpend,
		DailyAverage:   daily,
		ProjectedTotal: daily.Mul(decimal.NewFromInt(int64(length))),
		DaysElapsed:    in.DaysElapsed,
		DaysRemaining:  in.DaysRemaining,
		Budget:         in.Budget,
	}

	if in.Budget != nil && p.ProjectedTotal.GreaterThan(*in.Budget) {
		p.Warning = &model.OverageWarning{
			Overage:           p.ProjectedTotal.Sub(*in.Budget),
			SuggestedDailyCap: model.DivAtLeastOne(in.Budget.Sub(in.TotalSpend), in.DaysRemaining),
		}
	}
	return p
}

// ProjectPeriod builds the overall projection for w as of asOf, followed by
// one projection per budget row. The overall budget is the sum of all rows
// when any exist.
func ProjectPeriod(summary model.Summary, rows []model.BudgetPerformance, w model.PeriodWindow, asOf time.Time) []model.Projection {
	elapsed := w.Elapsed(asOf)
	remaining := w.Remaining(asOf)

	overall := ProjectionInput{
		TotalSpend:    summary.TotalAmount,
		DaysElapsed:   elapsed,
		DaysRemaining: remaining,
	}
	if len(rows) > 0 {
		var total decimal.Decimal
		for _, r := range rows {
			total = total.Add(r.BudgetAmount)
		}
		overall.Budget = &total
	}

	out := make([]model.Projection, 0, len(rows)+1)
	out = append(out, Project(overall))
	for _, r := range rows {
		budget := r.BudgetAmount
		out = append(out, Project(ProjectionInput{
			Category:      r.Category,
			TotalSpend:    r.SpentAmount,
			DaysElapsed:   elapsed,
			DaysRemaining: remaining,
			Budget:        &budget,
		}))
	}
	return out
}

// Warnings returns the projections that carry an overage warning.
func Warnings(ps []model.Projection) []model.Projection {
	var out []model.Projection
	for _, p := range ps {
		if p.Warning != nil {
			out = append(out, p)
		}
	}
	return out
}
