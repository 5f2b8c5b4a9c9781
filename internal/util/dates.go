package util

import (
	"fmt"
	"time"
)

// DateLayouts are accepted by ParseDate, tried in order.
var DateLayouts = []string{time.DateOnly, "20060102", "2006/01/02"}

// ParseDate parses a calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseRange parses an inclusive [start, end] date range. An empty end
// means no upper bound.
func ParseRange(start, end string) (time.Time, time.Time, error) {
	from, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	if end == "" {
		return from, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), nil
	}
	to, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s before start %s", end, start)
	}
	return from, to, nil
}

// InRange reports whether t's calendar date lies within [from, to].
func InRange(t, from, to time.Time) bool {
	d := Day(t)
	return !d.Before(from) && !d.After(to)
}

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
