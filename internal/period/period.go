// Package period resolves period labels to concrete calendar windows.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/finscore/internal/model"
)

// ErrInvalidPeriod is returned for a label other than week, month, quarter or year.
var ErrInvalidPeriod = errors.New("invalid period")

// ErrNoReference is returned by Resolve for a zero reference date. Callers
// supply "today" from their own clock.
var ErrNoReference = errors.New("period: zero reference date")

// Label names a resolvable period.
type Label string

const (
	Week    Label = "week"
	Month   Label = "month"
	Quarter Label = "quarter"
	Year    Label = "year"
)

// Labels lists the supported labels in ascending length.
var Labels = []Label{Week, Month, Quarter, Year}

// ParseLabel normalizes s and checks that it names a supported period.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Week, Month, Quarter, Year:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Resolve maps label and ref to the window containing ref.
func Resolve(label string, ref time.Time) (model.PeriodWindow, error) {
	l, err := ParseLabel(label)
	if err != nil {
		return model.PeriodWindow{}, err
	}
	if ref.IsZero() {
		return model.PeriodWindow{}, ErrNoReference
	}
	day := model.DateOf(ref)
	y, m, _ := day.Date()

	var start, end time.Time
	switch l {
	case Week:
		// ISO weeks start on Monday; Go's Sunday is 0.
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 6)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	case Quarter:
		q := (int(m) - 1) / 3
		start = time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 3, -1)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	}

	return model.PeriodWindow{Label: string(l), Start: start, End: end}, nil
}

// Previous returns the window of the same label immediately before w.
func Previous(w model.PeriodWindow) (model.PeriodWindow, error) {
	return Resolve(w.Label, w.Start.AddDate(0, 0, -1))
}
