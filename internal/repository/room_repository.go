package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/manishmaharjan/reservation-system/internal/model"
)

// RoomRepo manages persistence for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *RoomRepo) DB() *sql.DB {
	return r.db
}

const roomColumns = `id, room_name, capacity, max_time`

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var rm model.Room
	err := row.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.MaxTime)
	return rm, err
}

// Create inserts a room and assigns the generated ID. A zero MaxTime is
// replaced by model.DefaultMaxTime. A duplicate name yields ErrDuplicate.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	if rm.MaxTime <= 0 {
		rm.MaxTime = model.DefaultMaxTime
	}
	const q = `INSERT INTO rooms (room_name, capacity, max_time) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.MaxTime)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room last insert id: %w", err)
	}
	rm.ID = uint64(id)
	return nil
}

// GetByID retrieves a room by its ID. It returns ErrRoomNotFound if there
// is no matching row.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("get room %d: %w", id, err)
	}
	return rm, nil
}

// LockTx reads a room with SELECT ... FOR UPDATE inside tx. Holding the row
// lock serializes every writer of that room's timeline until tx ends.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ? FOR UPDATE`
	rm, err := scanRoom(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("lock room %d: %w", id, err)
	}
	return rm, nil
}

// List returns all rooms ordered by ID. When no rooms exist it returns an
// empty slice and nil error.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	result := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		result = append(result, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return result, nil
}

// Delete removes a room. Its reservations go with it through the
// ON DELETE CASCADE foreign key.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete room %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room %d: %w", id, err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
