package scoring

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/finscore/internal/model"
)

// Recommendation types.
const (
	TypeBudgetAlert     = "budget_alert"
	TypeOptimization    = "optimization"
	TypeTrendAlert      = "trend_alert"
	TypeOverageWarning  = "overage_warning"
	TypeFinancialHealth = "financial_health"
	TypeFollowUp        = "follow_up"
	TypeDiversify       = "diversify"
	TypeCompletion      = "completion"
)

// Rule thresholds.
const (
	TrendAlertAbove      = 20.0
	PoorHealthBelow      = 40.0
	UrgentOverdueFrom    = 15.0
	CompletionAlertAbove = 10.0
)

// SpendingSignals bundles the analytics a spending recommendation may use.
type SpendingSignals struct {
	Categories  []model.CategoryInsight
	Budgets     []model.BudgetPerformance
	Trend       model.TrendResult
	Projections []model.Projection
	Health      model.ScoreResult
	// Transactions is the number of transactions in the window. Without any,
	// only budget rules can fire.
	Transactions int
}

// SpendingRecommendations evaluates the spending rules in a fixed order and
// returns the result sorted by priority, keeping rule order within a
// priority.
func SpendingRecommendations(s SpendingSignals) []model.Recommendation {
	recs := []model.Recommendation{}

	for _, b := range s.Budgets {
		if b.Status != model.BudgetOverBudget {
			continue
		}
		recs = append(recs, model.Recommendation{
			Type:     TypeBudgetAlert,
			Priority: model.PriorityHigh,
			Title:    fmt.Sprintf("Over budget: %s", b.Category),
			Description: fmt.Sprintf("Spent %s of %s (%.1f%%) in %s.",
				b.SpentAmount.StringFixed(2), b.BudgetAmount.StringFixed(2), b.UtilizationPercentage, b.Category),
			Action: fmt.Sprintf("Pause discretionary %s spending or raise the budget.", b.Category),
		})
	}

	if len(s.Categories) > 0 {
		top := s.Categories[0]
		recs = append(recs, model.Recommendation{
			Type:     TypeOptimization,
			Priority: model.PriorityMedium,
			Title:    fmt.Sprintf("Top category: %s", top.Category),
			Description: fmt.Sprintf("%s accounts for %.1f%% of spending across %d transactions.",
				top.Category, top.PercentageOfTotal, top.Count),
			Action: fmt.Sprintf("Look for cheaper alternatives in %s.", top.Category),
		})
	}

	if s.Trend.Direction == model.TrendIncreasing && s.Trend.MagnitudePercent > TrendAlertAbove {
		recs = append(recs, model.Recommendation{
			Type:        TypeTrendAlert,
			Priority:    model.PriorityHigh,
			Title:       "Spending is trending up",
			Description: fmt.Sprintf("Recent daily spend is %.1f%% above the earlier part of the period.", s.Trend.MagnitudePercent),
			Action:      "Review purchases from the last week.",
		})
	}

	for _, p := range s.Projections {
		if p.Warning == nil {
			continue
		}
		scope := "overall"
		if p.Category != "" {
			scope = p.Category
		}
		recs = append(recs, model.Recommendation{
			Type:     TypeOverageWarning,
			Priority: model.PriorityHigh,
			Title:    fmt.Sprintf("Projected overage: %s", scope),
			Description: fmt.Sprintf("On pace for %s against a budget of %s, %s over.",
				p.ProjectedTotal.StringFixed(2), p.Budget.StringFixed(2), p.Warning.Overage.StringFixed(2)),
			Action: fmt.Sprintf("Keep daily %s spending under %s.", scope, p.Warning.SuggestedDailyCap.StringFixed(2)),
		})
	}

	if s.Transactions > 0 && s.Health.Value < PoorHealthBelow {
		recs = append(recs, model.Recommendation{
			Type:        TypeFinancialHealth,
			Priority:    model.PriorityUrgent,
			Title:       "Financial health needs attention",
			Description: fmt.Sprintf("Health score is %.0f out of 100.", s.Health.Value),
			Action:      "Work through the budget alerts first, then trim the top category.",
		})
	}

	SortRecommendations(recs)
	return recs
}

// LendingRecommendations evaluates the lending rules against a scored
// portfolio.
func LendingRecommendations(score model.ScoreResult, p model.PortfolioSummary) []model.Recommendation {
	recs := []model.Recommendation{}
	if p.TotalCount == 0 {
		return recs
	}

	if p.OverdueCount > 0 {
		priority := model.PriorityHigh
		if score.Factors[FactorOverdueRatio] >= UrgentOverdueFrom {
			priority = model.PriorityUrgent
		}
		recs = append(recs, model.Recommendation{
			Type:        TypeFollowUp,
			Priority:    priority,
			Title:       "Follow up on overdue lending",
			Description: fmt.Sprintf("%d of %d lending records are overdue.", p.OverdueCount, p.TotalCount),
			Action:      "Contact the counterparties and agree on a repayment date.",
		})
	}

	if score.Factors[FactorPersonConcentration] > 0 {
		recs = append(recs, model.Recommendation{
			Type:        TypeDiversify,
			Priority:    model.PriorityMedium,
			Title:       fmt.Sprintf("Exposure concentrated on %s", p.TopPerson),
			Description: fmt.Sprintf("%s holds %.0f%% of open lending exposure.", p.TopPerson, p.TopPersonShare*100),
			Action:      "Avoid new lending to this counterparty until existing balances shrink.",
		})
	}

	if score.Factors[FactorCompletion] > CompletionAlertAbove {
		recs = append(recs, model.Recommendation{
			Type:        TypeCompletion,
			Priority:    model.PriorityLow,
			Title:       "Few lending records are settled",
			Description: fmt.Sprintf("%d of %d records are completed.", p.CompletedCount, p.TotalCount),
			Action:      "Mark repaid records as completed and chase open balances.",
		})
	}

	SortRecommendations(recs)
	return recs
}

// SortRecommendations orders by priority, keeping the existing order within
// the same priority.
func SortRecommendations(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
}
