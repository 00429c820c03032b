package model

import "time"

// Reservation records a user's booking of a room for a time span.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room being reserved.
//  UserID    – user who made the reservation.
//  StartTime – first instant of the booking.
//  EndTime   – last instant of the booking. Always after StartTime; a
//              booking crossing midnight ends on the following day.
type Reservation struct {
	ID        uint64    // reservations.id
	RoomID    uint64    // reservations.room_id
	UserID    uint64    // reservations.user_id
	StartTime time.Time // reservations.start_time
	EndTime   time.Time // reservations.end_time
}

// ReservationDetail is a reservation joined with the names shown to clients.
type ReservationDetail struct {
	Reservation
	Username string
	RoomName string
}

// ReservationView is the client-facing shape of a reservation.
type ReservationView struct {
	ID       uint64 `json:"id"`
	User     string `json:"user"`
	Room     string `json:"room"`
	Date     string `json:"date"`
	TimeSpan string `json:"time-span"`
}
