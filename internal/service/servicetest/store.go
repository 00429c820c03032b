// Package servicetest provides in-memory doubles for the service package.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/queue"
	"github.com/manishmaharjan/reservation-system/internal/repository"
	"github.com/manishmaharjan/reservation-system/internal/schedule"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

type state struct {
	rooms        map[uint64]model.Room
	users        map[uint64]model.User
	reservations map[uint64]model.Reservation
	nextID       uint64
}

func (s state) clone() state {
	c := state{
		rooms:        make(map[uint64]model.Room, len(s.rooms)),
		users:        make(map[uint64]model.User, len(s.users)),
		reservations: make(map[uint64]model.Reservation, len(s.reservations)),
		nextID:       s.nextID,
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// Store is a service.Store held in memory. Transactions run one at a time
// against a copy that replaces the live state only on success.
type Store struct {
	mu sync.Mutex
	st state
}

var _ service.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: state{
		rooms:        map[uint64]model.Room{},
		users:        map[uint64]model.User{},
		reservations: map[uint64]model.Reservation{},
		nextID:       1,
	}}
}

// AddRoom seeds a room and returns it with its ID set.
func (s *Store) AddRoom(name string, capacity uint32, maxTime int) model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := model.Room{ID: s.st.nextID, Name: name, Capacity: capacity, MaxTime: maxTime}
	s.st.nextID++
	s.st.rooms[rm.ID] = rm
	return rm
}

// AddUser seeds a user and returns it with its ID set.
func (s *Store) AddUser(username string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{ID: s.st.nextID, Username: username, Email: username + "@example.com"}
	s.st.nextID++
	s.st.users[u.ID] = u
	return u
}

// AddReservation seeds a booking without any checks.
func (s *Store) AddReservation(roomID, userID uint64, start, end time.Time) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := model.Reservation{ID: s.st.nextID, RoomID: roomID, UserID: userID, StartTime: start.UTC(), EndTime: end.UTC()}
	s.st.nextID++
	s.st.reservations[r.ID] = r
	return r
}

// Reservation returns the stored booking with id.
func (s *Store) Reservation(id uint64) (model.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.reservations[id]
	return r, ok
}

// Count returns the number of stored reservations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.reservations)
}

func (s *Store) InTx(ctx context.Context, fn func(service.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&tx{st: &work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Room, 0, len(s.st.rooms))
	for _, rm := range s.st.rooms {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListReservationsWithin(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.st.reservations {
		if r.StartTime.Before(to) && r.EndTime.After(from) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *Store) GetReservationDetail(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.reservations[id]
	if !ok {
		return model.ReservationDetail{}, repository.ErrReservationNotFound
	}
	return s.st.detail(r), nil
}

func (s *Store) ListUserReservationDetails(ctx context.Context, userID uint64, from, to *time.Time) ([]model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rs []model.Reservation
	for _, r := range s.st.reservations {
		if r.UserID != userID {
			continue
		}
		if from != nil && r.StartTime.Before(*from) {
			continue
		}
		if to != nil && !r.StartTime.Before(*to) {
			continue
		}
		rs = append(rs, r)
	}
	sortReservations(rs)
	out := make([]model.ReservationDetail, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.st.detail(r))
	}
	return out, nil
}

func (st state) detail(r model.Reservation) model.ReservationDetail {
	return model.ReservationDetail{
		Reservation: r,
		Username:    st.users[r.UserID].Username,
		RoomName:    st.rooms[r.RoomID].Name,
	}
}

func sortReservations(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartTime.Equal(rs[j].StartTime) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].StartTime.Before(rs[j].StartTime)
	})
}

type tx struct {
	st *state
}

func (t *tx) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
	rm, ok := t.st.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrRoomNotFound
	}
	return rm, nil
}

func (t *tx) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrReservationNotFound
	}
	return r, nil
}

func (t *tx) RoomReservations(ctx context.Context, roomID uint64, window schedule.Interval) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range t.st.reservations {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (t *tx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	r.StartTime, r.EndTime = r.StartTime.UTC(), r.EndTime.UTC()
	if t.duplicate(*r) {
		return repository.ErrDuplicate
	}
	r.ID = t.st.nextID
	t.st.nextID++
	t.st.reservations[r.ID] = *r
	return nil
}

func (t *tx) UpdateReservation(ctx context.Context, r model.Reservation) error {
	r.StartTime, r.EndTime = r.StartTime.UTC(), r.EndTime.UTC()
	if t.duplicate(r) {
		return repository.ErrDuplicate
	}
	t.st.reservations[r.ID] = r
	return nil
}

func (t *tx) DeleteReservation(ctx context.Context, id uint64) error {
	if _, ok := t.st.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(t.st.reservations, id)
	return nil
}

// duplicate mirrors the unique (room_id, start_time, end_time) key.
func (t *tx) duplicate(r model.Reservation) bool {
	for id, o := range t.st.reservations {
		if id != r.ID && o.RoomID == r.RoomID && o.StartTime.Equal(r.StartTime) && o.EndTime.Equal(r.EndTime) {
			return true
		}
	}
	return false
}

// Clock is a service.Clock frozen at T.
type Clock struct{ T time.Time }

func (c Clock) Now() time.Time { return c.T }

// Recorder is a service.EventSink that keeps every event. Err, when set, is
// returned from Publish after recording.
type Recorder struct {
	mu     sync.Mutex
	Events []queue.ReservationEvent
	Err    error
}

func (r *Recorder) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
	return r.Err
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Type)
	}
	return out
}
