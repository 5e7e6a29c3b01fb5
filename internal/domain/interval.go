package domain

import (
	"fmt"
	"time"
)

// Interval is one booking. Both bounds are inclusive and in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval returns the booking [start, end]. End must not precede start.
func NewInterval(start, end time.Time) (Interval, error) {
	if end.Before(start) {
		return Interval{}, fmt.Errorf("interval ends before it starts: %s > %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether t falls within the booking, bounds included.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// FormatTime returns "15:04-15:04" for display
func (i Interval) FormatTime() string {
	return i.Start.Format("15:04") + "-" + i.End.Format("15:04")
}
