// Package daemon provides the long-running background scoring service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finscore/internal/model"
)

// Analyzer computes the reports the daemon serves. *engine.Engine satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, userID, label string, ref time.Time) (*model.AnalyticsReport, error)
	AssessRisk(ctx context.Context, userID string) (*model.RiskReport, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	UserID       string
	Period       string
	Schedule     string // cron expression or descriptor such as "@every 5m"
	Addr         string
	EventsBuffer int
	AllowOrigins []string
	Logger       logrus.FieldLogger
}

// Snapshot is a compact scoring state for status/event payloads.
type Snapshot struct {
	At              time.Time       `json:"at"`
	Period          string          `json:"period"`
	TotalSpend      decimal.Decimal `json:"total_spend"`
	Transactions    int             `json:"transactions"`
	HealthScore     float64         `json:"health_score"`
	HealthLevel     string          `json:"health_level"`
	RiskScore       float64         `json:"risk_score"`
	RiskLevel       string          `json:"risk_level"`
	OverBudget      int             `json:"over_budget"`
	Overdue         int             `json:"overdue"`
	Recommendations int             `json:"recommendations"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	TotalSpend   decimal.Decimal `json:"total_spend"`
	Transactions int             `json:"transactions"`
	HealthScore  float64         `json:"health_score"`
	RiskScore    float64         `json:"risk_score"`
	OverBudget   int             `json:"over_budget"`
	Overdue      int             `json:"overdue"`
}

func (d Delta) isZero() bool {
	return d.TotalSpend.IsZero() &&
		d.Transactions == 0 &&
		d.HealthScore == 0 &&
		d.RiskScore == 0 &&
		d.OverBudget == 0 &&
		d.Overdue == 0
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventScoreDelta = "score_delta"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	Schedule        string    `json:"schedule"`
	PollCount       int64     `json:"poll_count"`
	UserID          string    `json:"user_id"`
	Period          string    `json:"period"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

type metrics struct {
	registry     *prometheus.Registry
	healthScore  prometheus.Gauge
	riskScore    prometheus.Gauge
	polls        *prometheus.CounterVec
	pollDuration prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		healthScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "finscore_health_score",
			Help: "Latest financial health score (0-100)",
		}),
		riskScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "finscore_risk_score",
			Help: "Latest lending risk score (0-100)",
		}),
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finscore_polls_total",
			Help: "Scheduled recomputations by result",
		}, []string{"result"}),
		pollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finscore_poll_duration_seconds",
			Help:    "Time spent recomputing both reports",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	a       Analyzer
	log     logrus.FieldLogger
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	report      *model.AnalyticsReport
	risk        *model.RiskReport
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. The schedule is validated here so a bad
// config fails before anything listens.
func New(a Analyzer, cfg Config) (*Service, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("daemon schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Period == "" {
		cfg.Period = "month"
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		cfg:       cfg,
		a:         a,
		log:       log.WithField("component", "daemon"),
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}, nil
}

// Run starts HTTP endpoints and the recompute schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.pollOnce(ctx) }); err != nil {
		return fmt.Errorf("daemon schedule: %w", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/report", s.handleReport)
		r.Get("/risk", s.handleRisk)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()
	report, risk, err := s.compute(ctx)
	s.metrics.pollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.polls.WithLabelValues("error").Inc()
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.mu.Unlock()
		s.log.WithError(err).Warn("poll failed")
		return
	}
	s.metrics.polls.WithLabelValues("ok").Inc()
	s.metrics.healthScore.Set(report.HealthScore.Value)
	s.metrics.riskScore.Set(risk.RiskScore.Value)

	now := time.Now()
	snap := snapshotFromReports(report, risk, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.report = report
	s.risk = risk
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventScoreDelta, Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"health":   snap.HealthScore,
		"risk":     snap.RiskScore,
		"duration": time.Since(start),
	}).Debug("poll complete")

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) compute(ctx context.Context) (*model.AnalyticsReport, *model.RiskReport, error) {
	report, err := s.a.Analyze(ctx, s.cfg.UserID, s.cfg.Period, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("analytics: %w", err)
	}
	risk, err := s.a.AssessRisk(ctx, s.cfg.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("risk: %w", err)
	}
	return report, risk, nil
}

func snapshotFromReports(r *model.AnalyticsReport, risk *model.RiskReport, at time.Time) Snapshot {
	return Snapshot{
		At:              at,
		Period:          r.Period.Label,
		TotalSpend:      r.Summary.TotalAmount,
		Transactions:    r.Summary.TransactionCount,
		HealthScore:     r.HealthScore.Value,
		HealthLevel:     r.HealthScore.Level,
		RiskScore:       risk.RiskScore.Value,
		RiskLevel:       risk.RiskScore.Level,
		OverBudget:      r.BudgetSummary.OverBudgetCount,
		Overdue:         risk.Portfolio.OverdueCount,
		Recommendations: len(r.Recommendations) + len(risk.Recommendations),
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		TotalSpend:   curr.TotalSpend.Sub(prev.TotalSpend),
		Transactions: curr.Transactions - prev.Transactions,
		HealthScore:  curr.HealthScore - prev.HealthScore,
		RiskScore:    curr.RiskScore - prev.RiskScore,
		OverBudget:   curr.OverBudget - prev.OverBudget,
		Overdue:      curr.Overdue - prev.Overdue,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		UserID:          s.cfg.UserID,
		Period:          s.cfg.Period,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// handleReport serves the last scheduled report. ?period= and ?date= compute
// a fresh one for another window.
func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("period")
	date := r.URL.Query().Get("date")
	if label != "" || date != "" {
		if label == "" {
			label = s.cfg.Period
		}
		var ref time.Time
		if date != "" {
			d, err := time.Parse(model.DateLayout, date)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
				return
			}
			ref = d
		}
		report, err := s.a.Analyze(r.Context(), s.cfg.UserID, label, ref)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()
	if report == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no report computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleRisk(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	risk := s.risk
	s.mu.RUnlock()
	if risk == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no risk report computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, risk)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
