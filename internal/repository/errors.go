// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrRoomNotFound indicates that a room was not located in the DB.
	ErrRoomNotFound = errors.New("room not found")
	// ErrReservationNotFound indicates that a reservation was not located in the DB.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrUserNotFound indicates that a user was not located in the DB.
	ErrUserNotFound = errors.New("user not found")
	// ErrAPIKeyNotFound is returned when no stored key matches a raw key.
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrDuplicate is returned when an insert or update violates a unique
	// key. For reservations this is the (room_id, start_time, end_time) key;
	// for users it is username or email.
	ErrDuplicate = errors.New("duplicate entry")
)

const (
	mysqlDuplicateEntry  = 1062 // ER_DUP_ENTRY
	mysqlLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock        = 1213 // ER_LOCK_DEADLOCK
)

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// IsRetryable reports whether err aborted a transaction that can simply be
// run again: a detected deadlock or a lock wait timeout.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
}
