// Package window resolves date-range presets into absolute [since, until]
// calendar-day pairs, clamped to the history the ads provider will serve.
package window

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format every provider expects for window endpoints.
const DateLayout = "2006-01-02"

// The ads provider rejects insight queries whose start is older than 37
// complete months; the resolver clamps to the first day of that month.
const maxHistoryMonths = 37

// Window is an inclusive pair of local calendar dates.
type Window struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// Preset names accepted by Resolve.
const (
	PresetToday      = "today"
	PresetYesterday  = "yesterday"
	PresetLast7Days  = "last_7_days"
	PresetLast30Days = "last_30_days"
	PresetThisMonth  = "this_month"
	PresetLastMonth  = "last_month"
	PresetLifetime   = "lifetime"
	PresetCustom     = "custom"
)

// ErrInvalidWindow reports an unresolvable preset or custom range.
var ErrInvalidWindow = errors.New("window: invalid range")

// Resolver maps presets to windows against an injectable clock.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a resolver bound to the wall clock.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// EarliestAllowed returns the first day of the month 37 months before today.
func (r *Resolver) EarliestAllowed() time.Time {
	today := dateOnly(r.Now())
	limit := today.AddDate(0, -maxHistoryMonths, 0)
	return time.Date(limit.Year(), limit.Month(), 1, 0, 0, 0, 0, limit.Location())
}

// Resolve maps a preset (plus custom endpoints) to an absolute window.
// Custom endpoints are clamped to the earliest allowed date; a missing or
// inverted custom range yields ErrInvalidWindow.
func (r *Resolver) Resolve(preset, customStart, customEnd string) (Window, error) {
	today := dateOnly(r.Now())
	earliest := r.EarliestAllowed()

	var since, until time.Time
	switch preset {
	case PresetToday, "":
		since, until = today, today
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		since, until = y, y
	case PresetLast7Days:
		since, until = today.AddDate(0, 0, -6), today
	case PresetLast30Days:
		since, until = today.AddDate(0, 0, -29), today
	case PresetThisMonth:
		since = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		until = today
	case PresetLastMonth:
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		since = firstOfThis.AddDate(0, -1, 0)
		until = firstOfThis.AddDate(0, 0, -1)
	case PresetLifetime:
		since, until = earliest, today
	case PresetCustom:
		if customStart == "" || customEnd == "" {
			return Window{}, fmt.Errorf("%w: custom range requires both endpoints", ErrInvalidWindow)
		}
		var err error
		since, err = time.Parse(DateLayout, customStart)
		if err != nil {
			return Window{}, fmt.Errorf("%w: bad start %q", ErrInvalidWindow, customStart)
		}
		until, err = time.Parse(DateLayout, customEnd)
		if err != nil {
			return Window{}, fmt.Errorf("%w: bad end %q", ErrInvalidWindow, customEnd)
		}
		if until.After(today) {
			until = today
		}
	default:
		return Window{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidWindow, preset)
	}

	if since.Before(earliest) {
		since = earliest
	}
	if since.After(until) {
		return Window{}, fmt.Errorf("%w: since after until", ErrInvalidWindow)
	}

	return Window{Since: since.Format(DateLayout), Until: until.Format(DateLayout)}, nil
}

// Contains reports whether the calendar date of t falls inside w.
func (w Window) Contains(t time.Time) bool {
	day := t.Format(DateLayout)
	return day >= w.Since && day <= w.Until
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
