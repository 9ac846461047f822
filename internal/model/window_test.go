package model

import (
	"encoding/json"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodWindow_ElapsedRemaining(t *testing.T) {
	w := PeriodWindow{Label: "month", Start: day(2025, 6, 1), End: day(2025, 6, 30)}

	tests := []struct {
		asOf      time.Time
		elapsed   int
		remaining int
	}{
		{day(2025, 5, 31), 0, 30},
		{day(2025, 6, 1), 1, 29},
		{day(2025, 6, 15), 15, 15},
		{day(2025, 6, 30), 30, 0},
		{day(2025, 7, 3), 30, 0},
	}
	for _, tt := range tests {
		if got := w.Elapsed(tt.asOf); got != tt.elapsed {
			t.Errorf("Elapsed(%s) = %d, want %d", tt.asOf.Format(DateLayout), got, tt.elapsed)
		}
		if got := w.Remaining(tt.asOf); got != tt.remaining {
			t.Errorf("Remaining(%s) = %d, want %d", tt.asOf.Format(DateLayout), got, tt.remaining)
		}
	}
}

func TestPeriodWindow_Intersect(t *testing.T) {
	w := PeriodWindow{Start: day(2025, 6, 1), End: day(2025, 6, 30)}

	got, ok := w.Intersect(day(2025, 5, 20), day(2025, 6, 10))
	if !ok {
		t.Fatal("expected overlap")
	}
	if !got.Start.Equal(day(2025, 6, 1)) || !got.End.Equal(day(2025, 6, 10)) {
		t.Errorf("Intersect = [%s, %s]", got.Start.Format(DateLayout), got.End.Format(DateLayout))
	}

	if _, ok := w.Intersect(day(2025, 7, 1), day(2025, 7, 31)); ok {
		t.Error("disjoint ranges reported as overlapping")
	}
}

func TestPeriodWindow_JSON(t *testing.T) {
	w := PeriodWindow{Label: "week", Start: day(2025, 6, 2), End: day(2025, 6, 8)}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":"2025-06-02","end":"2025-06-08","label":"week"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var back PeriodWindow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Label != w.Label || !back.Start.Equal(w.Start) || !back.End.Equal(w.End) {
		t.Errorf("round trip = %+v, want %+v", back, w)
	}
}
