// Package engine orchestrates the analytics pipeline: it resolves the
// period, pulls record snapshots through the Repository, runs the pure
// stages and caches the serialized reports.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finscore/internal/model"
	"github.com/theirongolddev/finscore/internal/period"
	"github.com/theirongolddev/finscore/internal/pipeline"
	"github.com/theirongolddev/finscore/internal/scoring"
)

// ErrUserRequired is returned when a call names no user.
var ErrUserRequired = errors.New("user id is required")

// DefaultTTL is used when Config.TTL is zero.
const DefaultTTL = 15 * time.Minute

// Config wires the optional collaborators of an Engine. Zero values fall
// back to no cache, the system clock and a discarding logger.
type Config struct {
	Cache  Cache
	Clock  Clock
	Logger logrus.FieldLogger
	TTL    time.Duration
}

// Engine computes analytics and risk reports for one user at a time. It
// holds no per-call state and is safe for concurrent use.
type Engine struct {
	repo  Repository
	cache Cache
	clock Clock
	log   logrus.FieldLogger
	ttl   time.Duration
}

// New creates an Engine reading records from repo.
func New(repo Repository, cfg Config) *Engine {
	e := &Engine{
		repo:  repo,
		cache: cfg.Cache,
		clock: cfg.Clock,
		log:   cfg.Logger,
		ttl:   cfg.TTL,
	}
	if e.cache == nil {
		e.cache = nopCache{}
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	if e.ttl <= 0 {
		e.ttl = DefaultTTL
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Window resolves label against ref, or against today when ref is zero.
func (e *Engine) Window(label string, ref time.Time) (model.PeriodWindow, error) {
	if ref.IsZero() {
		ref = e.clock.Now()
	}
	return period.Resolve(label, ref)
}

// Analyze builds the spending report of userID for the period label
// containing ref.
func (e *Engine) Analyze(ctx context.Context, userID, label string, ref time.Time) (*model.AnalyticsReport, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	now := e.clock.Now()
	w, err := e.Window(label, ref)
	if err != nil {
		return nil, err
	}
	log := e.log.WithFields(logrus.Fields{"user_id": userID, "period": w.Label, "start": w.Start.Format(model.DateLayout)})

	version, err := e.repo.DatasetVersion(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading dataset version: %w", err)
	}
	key := CacheKey("analytics", userID, w.Label+":"+w.Start.Format(model.DateLayout), now, version)

	var cached model.AnalyticsReport
	if e.lookup(ctx, log, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	txns, err := e.repo.Transactions(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	budgets, err := e.repo.Budgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading budgets: %w", err)
	}

	report := BuildAnalytics(userID, w, txns, budgets, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.WithField("elapsed", time.Since(start)).Debug("analytics computed")

	e.store(ctx, log, key, report)
	return report, nil
}

// AssessRisk builds the lending risk report of userID over the whole
// portfolio.
func (e *Engine) AssessRisk(ctx context.Context, userID string) (*model.RiskReport, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	now := e.clock.Now()
	log := e.log.WithField("user_id", userID)

	version, err := e.repo.DatasetVersion(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading dataset version: %w", err)
	}
	key := CacheKey("risk", userID, "portfolio", now, version)

	var cached model.RiskReport
	if e.lookup(ctx, log, key, &cached) {
		return &cached, nil
	}

	records, err := e.repo.Lendings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading lending records: %w", err)
	}

	report := BuildRisk(userID, records, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.store(ctx, log, key, report)
	return report, nil
}

// BuildAnalytics runs every spending stage over transactions already
// fetched for w. Transactions outside w are ignored.
func BuildAnalytics(userID string, w model.PeriodWindow, txns []model.TransactionRecord, budgets []model.BudgetRecord, now time.Time) *model.AnalyticsReport {
	txns = pipeline.FilterByWindow(txns, w)

	summary := pipeline.Summarize(txns, w)
	categories := pipeline.CategoryInsights(txns)
	budgetRows, budgetSummary := pipeline.BudgetUtilization(budgets, txns, w)
	trend := pipeline.AnalyzeTrend(pipeline.DailySeries(pipeline.BucketByDay(txns)), w)

	health := scoring.HealthScore(scoring.HealthInput{
		OverBudgetCount: budgetSummary.OverBudgetCount,
		Amounts:         pipeline.Amounts(txns),
		CategoryCount:   pipeline.Diversity(txns),
		Trend:           trend,
	})
	projections := pipeline.ProjectPeriod(summary, budgetRows, w, now)

	recs := scoring.SpendingRecommendations(scoring.SpendingSignals{
		Categories:   categories,
		Budgets:      budgetRows,
		Trend:        trend,
		Projections:  projections,
		Health:       health,
		Transactions: summary.TransactionCount,
	})

	return &model.AnalyticsReport{
		UserID:            userID,
		Period:            w,
		Summary:           summary,
		CategoryBreakdown: categories,
		BudgetPerformance: budgetRows,
		BudgetSummary:     budgetSummary,
		Trend:             trend,
		HealthScore:       health,
		Projections:       projections,
		Recommendations:   recs,
		GeneratedAt:       now,
	}
}

// BuildRisk scores records as of now.
func BuildRisk(userID string, records []model.LendingRecord, now time.Time) *model.RiskReport {
	score, portfolio := scoring.LendingRisk(records, now)
	return &model.RiskReport{
		UserID:          userID,
		RiskScore:       score,
		Portfolio:       portfolio,
		HighRiskItems:   scoring.HighRiskItems(records, portfolio, now),
		Recommendations: scoring.LendingRecommendations(score, portfolio),
		GeneratedAt:     now,
	}
}

// CacheKey builds the cache key of one report. The dataset version makes
// keys of stale data unreachable rather than invalidating them; asOf is the
// day the report was computed, since projections and due dates move with it.
func CacheKey(kind, userID, scope string, asOf time.Time, version string) string {
	return fmt.Sprintf("finscore:v1:%s:%s:%s:%s:%s", kind, userID, scope, model.DateOf(asOf).Format(model.DateLayout), version)
}

// lookup decodes a cached report into dst. Cache failures are logged and
// treated as misses.
func (e *Engine) lookup(ctx context.Context, log logrus.FieldLogger, key string, dst any) bool {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
		return false
	}
	if !ok {
		log.Debug("cache miss")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.WithError(err).Warn("discarding undecodable cache entry")
		return false
	}
	log.Debug("cache hit")
	return true
}

func (e *Engine) store(ctx context.Context, log logrus.FieldLogger, key string, report any) {
	data, err := json.Marshal(report)
	if err != nil {
		log.WithError(err).Warn("encoding report for cache")
		return
	}
	if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
}
