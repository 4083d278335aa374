package domain

import (
	"fmt"
	"time"
)

// QuarterBounds is one contiguous reporting window, inclusive on both
// ends. Typically a single fiscal quarter.
type QuarterBounds struct {
	Start time.Time
	End   time.Time
}

// NewQuarterBounds validates and normalizes a reporting window.
// Both dates are truncated to midnight UTC. Returns an error for zero
// or reversed bounds.
func NewQuarterBounds(start, end time.Time) (QuarterBounds, error) {
	if start.IsZero() || end.IsZero() {
		return QuarterBounds{}, fmt.Errorf("quarter bounds require both dates: start=%s end=%s",
			start.Format(DateLayout), end.Format(DateLayout))
	}
	s := DateOnly(start)
	e := DateOnly(end)
	if e.Before(s) {
		return QuarterBounds{}, fmt.Errorf("quarter bounds reversed: start %s after end %s",
			s.Format(DateLayout), e.Format(DateLayout))
	}
	return QuarterBounds{Start: s, End: e}, nil
}

// Contains reports whether d falls within [Start, End].
func (q QuarterBounds) Contains(d time.Time) bool {
	return !d.Before(q.Start) && !d.After(q.End)
}

// ContainsNext reports whether d falls within (End, NextQuarterEnd].
func (q QuarterBounds) ContainsNext(d time.Time) bool {
	return d.After(q.End) && !d.After(q.NextQuarterEnd())
}

// PrevQuarterEnd is the end of the quarter preceding this window.
func (q QuarterBounds) PrevQuarterEnd() time.Time {
	return ShiftQuarterEnd(q.End, -1)
}

// NextQuarterEnd is the end of the quarter following this window.
func (q QuarterBounds) NextQuarterEnd() time.Time {
	return ShiftQuarterEnd(q.End, 1)
}

// ShiftQuarterEnd moves a date by n quarters and lands on the last
// calendar day of the resulting month. Month arithmetic only, never a
// fixed 90/91-day offset, so leap years and month lengths are handled.
func ShiftQuarterEnd(d time.Time, n int) time.Time {
	y, m, _ := d.Date()
	// Day zero of the following month normalizes to the last day of the
	// target month.
	return time.Date(y, m+time.Month(3*n)+1, 0, 0, 0, 0, 0, time.UTC)
}

// QuarterEndOf returns the last day of the calendar quarter containing d.
func QuarterEndOf(d time.Time) time.Time {
	y, m, _ := d.Date()
	endMonth := time.Month(((int(m)-1)/3)*3 + 3)
	return time.Date(y, endMonth+1, 0, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the canonical date format used in keys, logs and errors.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC, preserving the calendar day as
// reported in t's own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
