package schedule

import (
	"errors"
	"time"
)

var (
	// ErrPastSlot rejects a candidate that starts before now.
	ErrPastSlot = errors.New("can not book past time slots")
	// ErrTooLong rejects a candidate longer than the room allows.
	ErrTooLong = errors.New("reservation is too long")
	// ErrSlotTaken rejects a candidate that overlaps an existing booking.
	ErrSlotTaken = errors.New("time slot already taken")
)

// Request describes one candidate booking against a room's current timeline.
type Request struct {
	Candidate  Interval
	MaxMinutes int
	Now        time.Time
	CheckPast  bool
	Existing   []Booked
	Exclude    uint64
}

// Check applies the acceptance rules in order and returns the first one that
// fails: past start, then length, then overlap.
func Check(r Request) error {
	if r.CheckPast && r.Candidate.Start.Before(r.Now) {
		return ErrPastSlot
	}
	if r.Candidate.Minutes() > r.MaxMinutes {
		return ErrTooLong
	}
	if AnyOverlap(r.Existing, r.Candidate, r.Exclude) {
		return ErrSlotTaken
	}
	return nil
}
