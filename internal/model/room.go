package model

// DefaultMaxTime is the booking length ceiling, in minutes, given to rooms
// created without an explicit max_time.
const DefaultMaxTime = 180

// Room represents a bookable room as stored in the `rooms` table.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – unique display name.
//  Capacity – number of people the room seats.
//  MaxTime  – longest allowed reservation in minutes.
type Room struct {
	ID       uint64 `json:"id"`        // rooms.id
	Name     string `json:"room_name"` // rooms.room_name
	Capacity uint32 `json:"capacity"`  // rooms.capacity
	MaxTime  int    `json:"max_time"`  // rooms.max_time
}
