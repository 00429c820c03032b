package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/manishmaharjan/reservation-system/internal/model"
)

// ReservationRepo provides CRUD operations for reservations. All timestamp
// columns are stored in UTC; values are converted with UTC() before they
// reach the driver.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, room_id, user_id, start_time, end_time`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.RoomID, &res.UserID, &res.StartTime, &res.EndTime)
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	return res, err
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CreateTx inserts a reservation within tx and populates its generated ID.
// A unique-key violation yields ErrDuplicate.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (room_id, user_id, start_time, end_time) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.RoomID, res.UserID, res.StartTime.UTC(), res.EndTime.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reservation last insert id: %w", err)
	}
	res.ID = uint64(id)
	return nil
}

// LockByIDTx reads a reservation with a row lock held until tx ends.
func (r *ReservationRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, ErrReservationNotFound
		}
		return model.Reservation{}, fmt.Errorf("lock reservation %d: %w", id, err)
	}
	return res, nil
}

// FindTouchingTx returns the room's reservations whose span meets [start, end]
// including shared endpoints, using a locking read. The result is a superset
// of the bookings that overlap; callers apply the exact predicate.
func (r *ReservationRepo) FindTouchingTx(ctx context.Context, tx *sql.Tx, roomID uint64, start, end time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE room_id = ? AND NOT (end_time < ? OR start_time > ?)
               ORDER BY start_time ASC
               FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, roomID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("find reservations for room %d: %w", roomID, err)
	}
	out, err := collectReservations(rows)
	if err != nil {
		return nil, fmt.Errorf("find reservations for room %d: %w", roomID, err)
	}
	return out, nil
}

// UpdateTx rewrites room and span of an existing reservation within tx.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	const q = `UPDATE reservations SET room_id = ?, start_time = ?, end_time = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, res.RoomID, res.StartTime.UTC(), res.EndTime.UTC(), res.ID); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update reservation %d: %w", res.ID, err)
	}
	return nil
}

// DeleteTx removes a reservation within tx. It returns ErrReservationNotFound
// when no row was deleted.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// ListWithin returns every reservation whose span strictly intersects
// [from, to), across all rooms.
func (r *ReservationRepo) ListWithin(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE start_time < ? AND end_time > ?
               ORDER BY room_id ASC, start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list reservations within window: %w", err)
	}
	out, err := collectReservations(rows)
	if err != nil {
		return nil, fmt.Errorf("list reservations within window: %w", err)
	}
	return out, nil
}

const detailQuery = `SELECT r.id, r.room_id, r.user_id, r.start_time, r.end_time, u.username, rm.room_name
                     FROM reservations r
                     JOIN users u ON u.id = r.user_id
                     JOIN rooms rm ON rm.id = r.room_id`

func scanDetail(row interface{ Scan(...any) error }) (model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := row.Scan(&d.ID, &d.RoomID, &d.UserID, &d.StartTime, &d.EndTime, &d.Username, &d.RoomName)
	d.StartTime = d.StartTime.UTC()
	d.EndTime = d.EndTime.UTC()
	return d, err
}

// GetDetail returns a reservation joined with its username and room name.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReservationDetail{}, ErrReservationNotFound
		}
		return model.ReservationDetail{}, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return d, nil
}

// ListDetailsByUser returns a user's reservations ordered by start time.
// from and to, when non-nil, bound start_time as [from, to).
func (r *ReservationRepo) ListDetailsByUser(ctx context.Context, userID uint64, from, to *time.Time) ([]model.ReservationDetail, error) {
	q := detailQuery + ` WHERE r.user_id = ?`
	args := []any{userID}
	if from != nil {
		q += ` AND r.start_time >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		q += ` AND r.start_time < ?`
		args = append(args, to.UTC())
	}
	q += ` ORDER BY r.start_time ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations for user %d: %w", userID, err)
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations for user %d: %w", userID, err)
	}
	return out, nil
}
