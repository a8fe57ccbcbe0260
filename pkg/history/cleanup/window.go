package cleanup

import (
	"fmt"
	"time"
)

// BatchWindow is a daily time-of-day window during which scheduled cleanup
// may run. An end before the start wraps midnight. The zero value is
// always open.
type BatchWindow struct {
	start int // minutes after midnight
	end   int
	set   bool
}

// ParseBatchWindow parses "HH:MM" start and end times. Both empty yields an
// always-open window.
func ParseBatchWindow(start, end string) (BatchWindow, error) {
	if start == "" && end == "" {
		return BatchWindow{}, nil
	}
	if start == "" || end == "" {
		return BatchWindow{}, fmt.Errorf("batch window needs both start and end, got %q and %q", start, end)
	}

	s, err := parseClock(start)
	if err != nil {
		return BatchWindow{}, fmt.Errorf("batch window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return BatchWindow{}, fmt.Errorf("batch window end: %w", err)
	}
	return BatchWindow{start: s, end: e, set: true}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (expected HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsSet reports whether the window restricts cleanup.
func (w BatchWindow) IsSet() bool {
	return w.set
}

// Contains reports whether t, in its own location, falls inside the window.
// Equal start and end cover the whole day.
func (w BatchWindow) Contains(t time.Time) bool {
	if !w.set || w.start == w.end {
		return true
	}
	m := t.Hour()*60 + t.Minute()
	if w.start < w.end {
		return m >= w.start && m < w.end
	}
	return m >= w.start || m < w.end
}

// UntilOpen returns how long to wait from t until the window opens, zero
// when t is inside the window.
func (w BatchWindow) UntilOpen(t time.Time) time.Duration {
	if w.Contains(t) {
		return 0
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), w.start/60, w.start%60, 0, 0, t.Location())
	if !open.After(t) {
		open = open.AddDate(0, 0, 1)
	}
	return open.Sub(t)
}

// String implements fmt.Stringer.
func (w BatchWindow) String() string {
	if !w.set {
		return "always"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.start/60, w.start%60, w.end/60, w.end%60)
}
