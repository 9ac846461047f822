package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// PeriodWindow is the inclusive calendar range a period label resolves to.
type PeriodWindow struct {
	Label string
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days in the window (at least 1).
func (w PeriodWindow) Days() int {
	d := int(DateOf(w.End).Sub(DateOf(w.Start)).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

// Contains reports whether t falls on a day inside the window.
func (w PeriodWindow) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Elapsed returns the days from Start through asOf, clamped to [0, Days].
func (w PeriodWindow) Elapsed(asOf time.Time) int {
	d := DateOf(asOf)
	if d.Before(w.Start) {
		return 0
	}
	if d.After(w.End) {
		return w.Days()
	}
	return int(d.Sub(w.Start).Hours()/24) + 1
}

// Remaining returns the days left in the window after asOf.
func (w PeriodWindow) Remaining(asOf time.Time) int {
	return w.Days() - w.Elapsed(asOf)
}

// Intersect returns the overlap of w and [start, end]; ok is false when
// they do not overlap.
func (w PeriodWindow) Intersect(start, end time.Time) (PeriodWindow, bool) {
	s, e := DateOf(start), DateOf(end)
	if s.Before(w.Start) {
		s = w.Start
	}
	if e.After(w.End) {
		e = w.End
	}
	if e.Before(s) {
		return PeriodWindow{}, false
	}
	return PeriodWindow{Label: w.Label, Start: s, End: e}, true
}

type windowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// MarshalJSON renders the window as {start, end, label} with plain dates.
func (w PeriodWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{
		Start: w.Start.Format(DateLayout),
		End:   w.End.Format(DateLayout),
		Label: w.Label,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (w *PeriodWindow) UnmarshalJSON(data []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, raw.Start)
	if err != nil {
		return err
	}
	end, err := time.Parse(DateLayout, raw.End)
	if err != nil {
		return err
	}
	*w = PeriodWindow{Label: raw.Label, Start: start, End: end}
	return nil
}
