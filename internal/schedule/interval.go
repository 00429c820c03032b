// Package schedule holds the time arithmetic behind reservations: the two
// overlap predicates, slot parsing with midnight rollover, and the ordered
// acceptance rules for a candidate booking. Nothing in here touches storage.
package schedule

import "time"

// Interval is a span between two instants. Callers guarantee Start < End;
// ParseSlot never produces anything else.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the whole minutes between Start and End, rounded down.
func (i Interval) Minutes() int {
	return int(i.End.Sub(i.Start) / time.Minute)
}

// Overlaps is the booking-time predicate. Boundaries are inclusive, so a
// booking ending at 11:00 conflicts with one starting at 11:00.
func Overlaps(existing, candidate Interval) bool {
	s1, e1 := existing.Start, existing.End
	s2, e2 := candidate.Start, candidate.End
	// candidate starts inside existing
	if !s2.Before(s1) && !s2.After(e1) {
		return true
	}
	// candidate ends inside existing
	if !e2.Before(s1) && !e2.After(e1) {
		return true
	}
	// existing sits wholly inside candidate
	return !s1.Before(s2) && !e1.After(e2)
}

// Intersects is the availability predicate. It is strict: touching
// intervals do not intersect.
func Intersects(existing, candidate Interval) bool {
	return existing.Start.Before(candidate.End) && existing.End.After(candidate.Start)
}

// Booked is an interval already stored for a room.
type Booked struct {
	ID uint64
	Interval
}

// FirstConflict returns the first booking that Overlaps candidate, skipping
// the booking whose ID equals exclude. Pass exclude = 0 to skip nothing.
func FirstConflict(existing []Booked, candidate Interval, exclude uint64) (Booked, bool) {
	for _, b := range existing {
		if exclude != 0 && b.ID == exclude {
			continue
		}
		if Overlaps(b.Interval, candidate) {
			return b, true
		}
	}
	return Booked{}, false
}

// AnyOverlap reports whether FirstConflict finds anything.
func AnyOverlap(existing []Booked, candidate Interval, exclude uint64) bool {
	_, ok := FirstConflict(existing, candidate, exclude)
	return ok
}
