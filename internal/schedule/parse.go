package schedule

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for wall-clock times. A single digit
	// hour ("9:00") is accepted.
	ClockLayout = "15:04"
	// SpanLayout formats each end of a serialized time span.
	SpanLayout = "15:04:05"
)

// ErrBadFormat is returned when a date or clock string does not parse.
var ErrBadFormat = errors.New("invalid date or time format")

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrBadFormat, s)
	}
	return d, nil
}

// ParseClock parses an HH:MM clock and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q", ErrBadFormat, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ParseMoment combines a date and a clock into a single instant in loc.
func ParseMoment(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	off, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return at(d, off), nil
}

// ParseSlot builds the interval for a booking request. When the end clock is
// not after the start clock the slot crosses midnight and the end moves to
// the following calendar day.
func ParseSlot(date, start, end string, loc *time.Location) (Interval, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return Interval{}, err
	}
	so, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	eo, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	iv := Interval{Start: at(d, so), End: at(d, eo)}
	if !iv.End.After(iv.Start) {
		iv.End = iv.End.AddDate(0, 0, 1)
	}
	return iv, nil
}

// at places a clock offset on a calendar date using the date's location, so
// DST transitions resolve the way time.Date resolves them.
func at(d time.Time, off time.Duration) time.Time {
	h := int(off / time.Hour)
	m := int((off % time.Hour) / time.Minute)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, d.Location())
}

// FormatSpan renders an interval as "HH:MM:SS - HH:MM:SS" in its own location.
func FormatSpan(iv Interval) string {
	return iv.Start.Format(SpanLayout) + " - " + iv.End.Format(SpanLayout)
}
