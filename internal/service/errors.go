// Package service implements the reservation lifecycle and the availability
// scan on top of a transactional store. Handlers translate the Kind of a
// returned *Error into an HTTP status.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation.
type Kind int

const (
	Internal Kind = iota
	InvalidIdentifier
	IdentityMismatch
	NotFound
	Forbidden
	MalformedPayload
	TemporalConflict
	UnsupportedPayloadFormat
	Conflict
	Unauthorized
)

var kindNames = map[Kind]string{
	Internal:                 "internal",
	InvalidIdentifier:        "invalid identifier",
	IdentityMismatch:         "identity mismatch",
	NotFound:                 "not found",
	Forbidden:                "forbidden",
	MalformedPayload:         "malformed payload",
	TemporalConflict:         "temporal conflict",
	UnsupportedPayloadFormat: "unsupported payload format",
	Conflict:                 "conflict",
	Unauthorized:             "unauthorized",
}

// Error satisfies the error interface so a bare Kind can be used as an
// errors.Is target.
func (k Kind) Error() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Client-facing messages. They are part of the API contract.
const (
	MsgInvalidUserID        = "Invalid user_id parameter"
	MsgInvalidReservationID = "Invalid reservation_id parameter"
	MsgKeyMismatch          = "The provided Api-key does not correspond to the user_id provided."
	MsgIncorrectKey         = "Incorrect api key."
	MsgNotAdmin             = "The provided Api-key does not belong to an admin account"
	MsgNotJSON              = "Request must be in JSON format."
	MsgBadJSON              = "Error parsing JSON data"
	MsgCreateFieldsRequired = "date, start-time, end-time and roomId are required"
	MsgUpdateFieldsRequired = "At least one of date, start-time, end-time, or roomId is required."
	MsgRoomNotFound         = "No room found with the provided room id."
	MsgReservationNotFound  = "No reservation found with the provided reservation_id."
	MsgNotOwner             = "Reservation does not belong to the provided user_id."
	MsgBadSlotFormat        = "Invalid date or time format. Date format: YYYY-MM-DD. Time format: HH:MM"
	MsgBadDateFilter        = "Invalid date format. Use YYYY-MM-DD."
	MsgPastSlot             = "Can not book past time slots"
	MsgTooLong              = "Reservation is too long."
	MsgSlotTaken            = "Time slot already taken"
	MsgAvailabilityRequired = "date and time parameters are required."
	MsgBadMoment            = "Invalid date or time format. Use YYYY-MM-DD for date and HH:MM for time."
	MsgBadDuration          = "Duration must be a positive integer."
	MsgUserFieldsRequired   = "Username and email are required"
	MsgBadEmail             = "Incorrect email format"
	MsgUserExists           = "Username already exists"
	MsgUserNotFound         = "No user found with the provided user_id."
	MsgRoomFieldsRequired   = "room_name and capacity are required"
	MsgRoomExists           = "Room name already exists"
	MsgBadMaxTime           = "max_time must be a positive integer."
)

// Error is the error type returned by every service operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func fail(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func wrap(k Kind, msg string, err error) *Error { return &Error{Kind: k, Msg: msg, Err: err} }

// internal wraps an unexpected failure. The cause stays out of Msg.
func internal(op string, err error) *Error {
	return &Error{Kind: Internal, Msg: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind carried by err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Internal
}
