package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/repository"
	"github.com/manishmaharjan/reservation-system/internal/schedule"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Tx is the set of writes that must happen under a single transaction.
// Not-found conditions are reported with the repository sentinels.
type Tx interface {
	// LockRoom reads a room and holds its row lock until the transaction ends.
	LockRoom(ctx context.Context, id uint64) (model.Room, error)
	LockReservation(ctx context.Context, id uint64) (model.Reservation, error)
	// RoomReservations returns at least every booking on the room that
	// overlaps window, inclusive of endpoints.
	RoomReservations(ctx context.Context, roomID uint64, window schedule.Interval) ([]model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

// Store is the persistence the reservation and availability services need.
type Store interface {
	// InTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(Tx) error) error
	ListRooms(ctx context.Context) ([]model.Room, error)
	// ListReservationsWithin returns reservations strictly intersecting [from, to).
	ListReservationsWithin(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	GetReservationDetail(ctx context.Context, id uint64) (model.ReservationDetail, error)
	ListUserReservationDetails(ctx context.Context, userID uint64, from, to *time.Time) ([]model.ReservationDetail, error)
}

// SQLStore implements Store over the MySQL repositories.
type SQLStore struct {
	DB           *sql.DB
	Rooms        *repository.RoomRepo
	Reservations *repository.ReservationRepo
}

// NewSQLStore wires a store from a single DB handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		DB:           db,
		Rooms:        repository.NewRoomRepo(db),
		Reservations: repository.NewReservationRepo(db),
	}
}

// txAttempts bounds how often InTx reruns a transaction MySQL aborted
// because of a deadlock.
const txAttempts = 3

func (s *SQLStore) InTx(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !repository.IsRetryable(err) {
			return err
		}
	}
	return err
}

func (s *SQLStore) runTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.Rooms.List(ctx)
}

func (s *SQLStore) ListReservationsWithin(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	return s.Reservations.ListWithin(ctx, from, to)
}

func (s *SQLStore) GetReservationDetail(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	return s.Reservations.GetDetail(ctx, id)
}

func (s *SQLStore) ListUserReservationDetails(ctx context.Context, userID uint64, from, to *time.Time) ([]model.ReservationDetail, error) {
	return s.Reservations.ListDetailsByUser(ctx, userID, from, to)
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
	return t.s.Rooms.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return t.s.Reservations.LockByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) RoomReservations(ctx context.Context, roomID uint64, window schedule.Interval) ([]model.Reservation, error) {
	return t.s.Reservations.FindTouchingTx(ctx, t.tx, roomID, window.Start, window.End)
}

func (t *sqlTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.Reservations.CreateTx(ctx, t.tx, r)
}

func (t *sqlTx) UpdateReservation(ctx context.Context, r model.Reservation) error {
	return t.s.Reservations.UpdateTx(ctx, t.tx, r)
}

func (t *sqlTx) DeleteReservation(ctx context.Context, id uint64) error {
	return t.s.Reservations.DeleteTx(ctx, t.tx, id)
}
