package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the top-level aggregate across the transactions of a window.
type Summary struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
	TransactionCount int             `json:"transaction_count"`
	DailyAverage     decimal.Decimal `json:"daily_average"`
}

// DayBucket holds the spend of a single calendar day.
type DayBucket struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// TrendDirection is the sign of recent spend relative to earlier spend.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendResult is the output of the spending trend analysis.
type TrendResult struct {
	Direction        TrendDirection  `json:"direction"`
	MagnitudePercent float64         `json:"magnitude_percent"`
	SampleCount      int             `json:"sample_count"`
	RecentAverage    decimal.Decimal `json:"recent_average"`
	EarlierAverage   decimal.Decimal `json:"earlier_average"`
	AverageDaily     decimal.Decimal `json:"average_daily"`
	Highest          *DayBucket      `json:"highest,omitempty"`
	Lowest           *DayBucket      `json:"lowest,omitempty"`
}

// Frequency buckets a category by how many transactions it has.
type Frequency string

const (
	FrequencyHigh   Frequency = "high"
	FrequencyMedium Frequency = "medium"
	FrequencyLow    Frequency = "low"
)

// CategoryInsight is one row of the category breakdown.
type CategoryInsight struct {
	Category          string          `json:"category"`
	Total             decimal.Decimal `json:"total"`
	Count             int             `json:"count"`
	Average           decimal.Decimal `json:"average"`
	PercentageOfTotal float64         `json:"percentage_of_total"`
	Frequency         Frequency       `json:"frequency"`
}

// BudgetStatus classifies a utilization percentage.
type BudgetStatus string

const (
	BudgetOverBudget  BudgetStatus = "over_budget"
	BudgetOnTrack     BudgetStatus = "on_track"
	BudgetUnderBudget BudgetStatus = "under_budget"
)

// BudgetPerformance is spend against the allocation of one category.
type BudgetPerformance struct {
	Category              string          `json:"category"`
	BudgetAmount          decimal.Decimal `json:"budget_amount"`
	SpentAmount           decimal.Decimal `json:"spent_amount"`
	RemainingAmount       decimal.Decimal `json:"remaining_amount"`
	UtilizationPercentage float64         `json:"utilization_percentage"`
	Status                BudgetStatus    `json:"status"`
}

// BudgetSummary aggregates all budget rows of a window.
type BudgetSummary struct {
	TotalBudgeted      decimal.Decimal `json:"total_budgeted"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	OverallUtilization float64         `json:"overall_utilization"`
	OverBudgetCount    int             `json:"over_budget_count"`
}

// ScoreResult is a 0-100 composite score with its itemized factors.
type ScoreResult struct {
	Value   float64            `json:"value"`
	Level   string             `json:"level,omitempty"`
	Factors map[string]float64 `json:"factors"`
}

// OverageWarning is emitted when a projection exceeds its budget.
type OverageWarning struct {
	Overage           decimal.Decimal `json:"overage"`
	SuggestedDailyCap decimal.Decimal `json:"suggested_daily_cap"`
}

// Projection is a linear extrapolation of period-to-date spend.
type Projection struct {
	Category       string           `json:"category,omitempty"`
	TotalSpend     decimal.Decimal  `json:"total_spend"`
	DailyAverage   decimal.Decimal  `json:"daily_average"`
	ProjectedTotal decimal.Decimal  `json:"projected_total"`
	DaysElapsed    int              `json:"days_elapsed"`
	DaysRemaining  int              `json:"days_remaining"`
	Budget         *decimal.Decimal `json:"budget,omitempty"`
	Warning        *OverageWarning  `json:"warning,omitempty"`
}

// Priority orders recommendations.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sort key where lower means more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Recommendation is one actionable suggestion derived from the analytics.
type Recommendation struct {
	Type        string   `json:"type"`
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

// AnalyticsReport is the full spending analysis of one user and period.
type AnalyticsReport struct {
	UserID            string              `json:"user_id"`
	Period            PeriodWindow        `json:"period"`
	Summary           Summary             `json:"summary"`
	CategoryBreakdown []CategoryInsight   `json:"category_breakdown"`
	BudgetPerformance []BudgetPerformance `json:"budget_performance"`
	BudgetSummary     BudgetSummary       `json:"budget_summary"`
	Trend             TrendResult         `json:"trend"`
	HealthScore       ScoreResult         `json:"health_score"`
	Projections       []Projection        `json:"projections"`
	Recommendations   []Recommendation    `json:"recommendations"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// PortfolioSummary describes the lending exposure behind a risk score.
type PortfolioSummary struct {
	TotalCount          int             `json:"total_count"`
	OpenCount           int             `json:"open_count"`
	OverdueCount        int             `json:"overdue_count"`
	CompletedCount      int             `json:"completed_count"`
	LentOutstanding     decimal.Decimal `json:"lent_outstanding"`
	BorrowedOutstanding decimal.Decimal `json:"borrowed_outstanding"`
	TopPerson           string          `json:"top_person,omitempty"`
	TopPersonShare      float64         `json:"top_person_share"`
	RecentCount         int             `json:"recent_30_day_count"`
}

// HighRiskItem flags one lending record or counterparty needing attention.
type HighRiskItem struct {
	RecordID    string          `json:"record_id,omitempty"`
	Person      string          `json:"person"`
	Kind        LendingKind     `json:"kind,omitempty"`
	Status      LendingStatus   `json:"status,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueOn       *time.Time      `json:"due_on,omitempty"`
	Reason      string          `json:"reason"`
}

// RiskReport is the portfolio-wide lending risk assessment of one user.
type RiskReport struct {
	UserID          string           `json:"user_id"`
	RiskScore       ScoreResult      `json:"risk_score"`
	Portfolio       PortfolioSummary `json:"portfolio"`
	HighRiskItems   []HighRiskItem   `json:"high_risk_items"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
