// Package scoring turns pipeline outputs into composite 0-100 scores and
// prioritized recommendations.
package scoring

import (
	"math"

	"github.com/theirongolddev/finscore/internal/model"
)

// Health factor keys. Each value is the number of points deducted.
const (
	FactorBudgetAdherence = "budget_adherence"
	FactorConsistency     = "consistency"
	FactorDiversification = "diversification"
	FactorTrend           = "trend"
)

// Health penalty caps.
const (
	budgetPenaltyPer   = 10.0
	budgetPenaltyCap   = 30.0
	consistencyCap     = 20.0
	diversificationCap = 20.0
	trendPenaltyCap    = 30.0
)

// HealthInput is what the health scorer needs from one analysis window.
type HealthInput struct {
	OverBudgetCount int
	Amounts         []float64
	CategoryCount   int
	Trend           model.TrendResult
}

// HealthScore starts at 100 and subtracts independently capped penalties.
// A window without transactions scores 100 with every penalty at zero.
// Only an increasing trend is penalized; a decreasing one earns no bonus.
func HealthScore(in HealthInput) model.ScoreResult {
	factors := map[string]float64{
		FactorBudgetAdherence: 0,
		FactorConsistency:     0,
		FactorDiversification: 0,
		FactorTrend:           0,
	}
	if len(in.Amounts) == 0 {
		return model.ScoreResult{Value: 100, Level: healthLevel(100), Factors: factors}
	}

	factors[FactorBudgetAdherence] = math.Min(budgetPenaltyCap, budgetPenaltyPer*float64(in.OverBudgetCount))

	consistency := consistencyCap
	if mean, variance := meanVariance(in.Amounts); mean > 0 {
		consistency = math.Max(0, consistencyCap-variance/mean)
	}
	factors[FactorConsistency] = consistencyCap - consistency

	diversification := math.Min(diversificationCap, float64(in.CategoryCount)*2)
	factors[FactorDiversification] = diversificationCap - diversification

	if in.Trend.Direction == model.TrendIncreasing {
		factors[FactorTrend] = math.Min(trendPenaltyCap, in.Trend.MagnitudePercent)
	}

	total := 0.0
	for _, p := range factors {
		total += p
	}
	value := math.Round(model.Clamp(100-total, 0, 100))
	return model.ScoreResult{Value: value, Level: healthLevel(value), Factors: factors}
}

func healthLevel(v float64) string {
	switch {
	case v >= 80:
		return "excellent"
	case v >= 60:
		return "good"
	case v >= 40:
		return "fair"
	default:
		return "poor"
	}
}

// meanVariance returns the mean and population variance of xs.
func meanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, variance
}
