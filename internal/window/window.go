// Package window resolves time-window bounds against a reference instant, wrapping a window
// that crosses midnight to the previous day, and reads the bounds interactively.
package window

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Spec is an inclusive time window. A nil bound is unbounded on that side.
type Spec struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded reports whether the window lets every instant through.
func (s Spec) Unbounded() bool {
	return s.Start == nil && s.End == nil
}

// Before reports whether t lies before the start of the window.
func (s Spec) Before(t time.Time) bool {
	return s.Start != nil && t.Before(*s.Start)
}

// After reports whether t lies after the end of the window.
func (s Spec) After(t time.Time) bool {
	return s.End != nil && t.After(*s.End)
}

// Contains reports whether t lies in the window. Both bounds are inclusive.
func (s Spec) Contains(t time.Time) bool {
	return !s.Before(t) && !s.After(t)
}

func (s Spec) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(s.Start, "-inf"), formatBound(s.End, "+inf"))
}

func formatBound(t *time.Time, unbounded string) string {
	if t == nil {
		return unbounded
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

// BoundError reports window text that is neither empty, "now", a time of day nor a date-time.
type BoundError struct {
	Raw string
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("invalid window bound %q: expected now, hh:mm[:ss] or a date-time like 2006-01-02 15:04:05", e.Raw)
}

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

// instantLayouts are tried in order. Layouts without a zone use the location of the
// reference instant.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"20060102/150405.999999",
}

// Resolve converts raw window bounds into a Spec. Each bound is empty (unbounded), "now" or
// "n", a time of day ("23:50", "23:50:30") on the calendar date of now, or a date-time.
//
// When both bounds are present and start is later than end, the window is taken to span
// midnight: start moves back by one calendar day and end stays.
func Resolve(rawStart, rawEnd string, now time.Time) (Spec, error) {
	start, err := resolveBound(rawStart, now)
	if err != nil {
		return Spec{}, err
	}
	end, err := resolveBound(rawEnd, now)
	if err != nil {
		return Spec{}, err
	}

	if start != nil && end != nil && start.After(*end) {
		shifted := start.AddDate(0, 0, -1)
		slog.Debug("Window crosses midnight, moving start to previous day",
			"start", *start, "shiftedStart", shifted, "end", *end)
		start = &shifted
	}

	spec := Spec{Start: start, End: end}
	slog.Debug("Resolved window", "window", spec.String(), "now", now)
	return spec, nil
}

func resolveBound(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.EqualFold(raw, "now") || strings.EqualFold(raw, "n") {
		t := now
		return &t, nil
	}

	for _, layout := range timeOfDayLayouts {
		tod, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, now.Location())
		return &t, nil
	}

	t, err := ParseInstant(raw, now.Location())
	if err != nil {
		return nil, &BoundError{Raw: raw}
	}
	return &t, nil
}

// ParseInstant parses a fully qualified date-time. Layouts without a zone are interpreted in
// loc; a nil loc means time.Local.
func ParseInstant(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date-time", raw)
}
