// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a reservation lifecycle transition.
type EventType string

const (
	ReservationCreated EventType = "reservation.created"
	ReservationUpdated EventType = "reservation.updated"
	ReservationDeleted EventType = "reservation.deleted"
)

// ReservationEvent is published after a reservation change commits. It
// carries enough for downstream consumers to log or notify without querying
// the primary database.
type ReservationEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username,omitempty"`
	RoomID        uint64    `json:"room_id"`
	RoomName      string    `json:"room_name,omitempty"`
	StartsAt      string    `json:"starts_at,omitempty"`
	EndsAt        string    `json:"ends_at,omitempty"`
	OccurredAt    string    `json:"occurred_at"`
}

// NewReservationEvent stamps an event with a fresh id and the current time.
// Times are rendered in RFC 3339.
func NewReservationEvent(t EventType, reservationID, userID, roomID uint64, start, end time.Time) ReservationEvent {
	ev := ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		ReservationID: reservationID,
		UserID:        userID,
		RoomID:        roomID,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if !start.IsZero() {
		ev.StartsAt = start.Format(time.RFC3339)
	}
	if !end.IsZero() {
		ev.EndsAt = end.Format(time.RFC3339)
	}
	return ev
}
