package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finscore/internal/model"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	health float64
	risk   float64
	err    error
	labels []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, userID, label string, _ time.Time) (*model.AnalyticsReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, label)
	if f.err != nil {
		return nil, f.err
	}
	return &model.AnalyticsReport{
		UserID:      userID,
		Period:      model.PeriodWindow{Label: label},
		Summary:     model.Summary{TotalAmount: decimal.NewFromInt(120), TransactionCount: 3},
		HealthScore: model.ScoreResult{Value: f.health, Level: "good"},
	}, nil
}

func (f *fakeAnalyzer) AssessRisk(_ context.Context, userID string) (*model.RiskReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.RiskReport{UserID: userID, RiskScore: model.ScoreResult{Value: f.risk, Level: "low"}}, nil
}

func newTestService(t *testing.T, a Analyzer, cfg Config) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg.Logger = logger
	s, err := New(a, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{TotalSpend: decimal.NewFromInt(100), Transactions: 4, HealthScore: 80, RiskScore: 10, Overdue: 1}
	curr := Snapshot{TotalSpend: decimal.RequireFromString("130.5"), Transactions: 6, HealthScore: 72, RiskScore: 25, Overdue: 2, OverBudget: 1}

	delta := diffSnapshots(prev, curr)
	if !delta.TotalSpend.Equal(decimal.RequireFromString("30.5")) {
		t.Fatalf("TotalSpend delta = %s, want 30.5", delta.TotalSpend)
	}
	if delta.Transactions != 2 || delta.Overdue != 1 || delta.OverBudget != 1 {
		t.Fatalf("count deltas = %+v", delta)
	}
	if delta.HealthScore != -8 || delta.RiskScore != 15 {
		t.Fatalf("score deltas = %+v", delta)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("self diff should be zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, &fakeAnalyzer{}, Config{EventsBuffer: 2})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	if _, err := New(&fakeAnalyzer{}, Config{Schedule: "every tuesday"}); err == nil {
		t.Fatal("expected schedule error")
	}
	s, err := New(&fakeAnalyzer{}, Config{Schedule: "*/5 * * * *"})
	if err != nil {
		t.Fatalf("cron expression rejected: %v", err)
	}
	if s.cfg.Period != "month" || s.cfg.EventsBuffer != 200 {
		t.Errorf("defaults not applied: %+v", s.cfg)
	}
}

func TestPollOnce_EmitsSnapshotThenDeltas(t *testing.T) {
	a := &fakeAnalyzer{health: 80, risk: 10}
	s := newTestService(t, a, Config{UserID: "u1", Period: "week"})
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // unchanged, no event

	a.mu.Lock()
	a.risk = 35
	a.mu.Unlock()
	s.pollOnce(ctx)

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	polls := s.pollCount
	s.mu.RUnlock()

	if polls != 3 {
		t.Errorf("pollCount = %d, want 3", polls)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != EventSnapshot || events[1].Type != EventScoreDelta {
		t.Errorf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Delta.RiskScore != 25 {
		t.Errorf("risk delta = %v, want 25", events[1].Delta.RiskScore)
	}
	if a.labels[0] != "week" {
		t.Errorf("analyzed label = %q, want week", a.labels[0])
	}
}

func TestPollOnce_RecordsError(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("db down")}
	s := newTestService(t, a, Config{UserID: "u1"})
	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if !strings.Contains(st.LastError, "db down") {
		t.Errorf("LastError = %q", st.LastError)
	}
	if st.EventCount != 0 {
		t.Errorf("EventCount = %d, want 0", st.EventCount)
	}
}

func TestHandler(t *testing.T) {
	a := &fakeAnalyzer{health: 64, risk: 12}
	s := newTestService(t, a, Config{UserID: "u1"})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get("/healthz"); code != http.StatusOK || body != "ok\n" {
		t.Errorf("/healthz = %d %q", code, body)
	}
	if code, _ := get("/v1/report"); code != http.StatusServiceUnavailable {
		t.Errorf("/v1/report before poll = %d, want 503", code)
	}
	if code, _ := get("/v1/risk"); code != http.StatusServiceUnavailable {
		t.Errorf("/v1/risk before poll = %d, want 503", code)
	}

	s.pollOnce(context.Background())

	code, body := get("/v1/status")
	if code != http.StatusOK {
		t.Fatalf("/v1/status = %d", code)
	}
	var st Status
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatal(err)
	}
	if st.PollCount != 1 || st.Summary.HealthScore != 64 || st.Summary.RiskScore != 12 {
		t.Errorf("status = %+v", st)
	}

	code, body = get("/v1/report")
	if code != http.StatusOK || !strings.Contains(body, `"user_id":"u1"`) {
		t.Errorf("/v1/report = %d %s", code, body)
	}
	if code, body := get("/v1/report?period=year"); code != http.StatusOK || !strings.Contains(body, `"label":"year"`) {
		t.Errorf("/v1/report?period=year = %d %s", code, body)
	}
	if code, _ := get("/v1/report?date=June"); code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", code)
	}
	if code, _ := get("/v1/risk"); code != http.StatusOK {
		t.Errorf("/v1/risk = %d", code)
	}

	code, body = get("/v1/events")
	var events []Event
	if err := json.Unmarshal([]byte(body), &events); err != nil || code != http.StatusOK || len(events) != 1 {
		t.Errorf("/v1/events = %d %s (%v)", code, body, err)
	}

	code, body = get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "finscore_health_score 64") {
		t.Errorf("/metrics missing health gauge: %d", code)
	}
	if !strings.Contains(body, `finscore_polls_total{result="ok"} 1`) {
		t.Error("/metrics missing poll counter")
	}
}
