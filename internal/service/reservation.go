package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/queue"
	"github.com/manishmaharjan/reservation-system/internal/repository"
	"github.com/manishmaharjan/reservation-system/internal/schedule"
)

// publishTimeout bounds how long a committed write waits on event delivery.
const publishTimeout = 5 * time.Second

// CreateInput is the body of a create request. All fields are required.
type CreateInput struct {
	Date      string
	StartTime string
	EndTime   string
	RoomID    uint64
}

// UpdateInput is the body of an update request. Nil fields keep their
// current value; at least one must be set.
type UpdateInput struct {
	Date      *string
	StartTime *string
	EndTime   *string
	RoomID    *uint64
}

func (in UpdateInput) empty() bool {
	return in.Date == nil && in.StartTime == nil && in.EndTime == nil && in.RoomID == nil
}

// ReservationService owns the reservation lifecycle. Every mutation runs in
// one store transaction holding the room lock, so the overlap check and the
// write it guards see the same timeline.
type ReservationService struct {
	store Store
	clock Clock
	loc   *time.Location
	sink  EventSink
	log   *zap.Logger
}

// NewReservationService wires the service. loc is the zone wall-clock input
// is interpreted in; sink and logger may be nil.
func NewReservationService(store Store, clock Clock, loc *time.Location, sink EventSink, logger *zap.Logger) *ReservationService {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{store: store, clock: clock, loc: loc, sink: sink, log: logger}
}

// Location reports the zone used for parsing and display.
func (s *ReservationService) Location() *time.Location { return s.loc }

// Create books a room for the caller.
func (s *ReservationService) Create(ctx context.Context, caller model.User, rawOwnerID string, in CreateInput) (model.ReservationView, error) {
	owner, err := Authorize(caller, rawOwnerID)
	if err != nil {
		return model.ReservationView{}, err
	}
	if in.Date == "" || in.StartTime == "" || in.EndTime == "" || in.RoomID == 0 {
		return model.ReservationView{}, fail(MalformedPayload, MsgCreateFieldsRequired)
	}

	var (
		created model.Reservation
		room    model.Room
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		room, err = lockRoom(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}
		slot, err := schedule.ParseSlot(in.Date, in.StartTime, in.EndTime, s.loc)
		if err != nil {
			return wrap(MalformedPayload, MsgBadSlotFormat, err)
		}
		if err := s.admit(ctx, tx, room, slot, 0); err != nil {
			return err
		}
		created = model.Reservation{RoomID: room.ID, UserID: owner, StartTime: slot.Start, EndTime: slot.End}
		return storeWrite("insert reservation", tx.InsertReservation(ctx, &created))
	})
	if err != nil {
		return model.ReservationView{}, err
	}

	s.log.Info("reservation created",
		zap.Uint64("reservation_id", created.ID),
		zap.Uint64("room_id", room.ID),
		zap.Uint64("user_id", owner),
	)
	s.notify(ctx, queue.ReservationCreated, created, caller.Username, room.Name)
	return s.view(model.ReservationDetail{Reservation: created, Username: caller.Username, RoomName: room.Name}), nil
}

// Get returns one of the caller's reservations.
func (s *ReservationService) Get(ctx context.Context, caller model.User, rawOwnerID, rawReservationID string) (model.ReservationView, error) {
	owner, err := Authorize(caller, rawOwnerID)
	if err != nil {
		return model.ReservationView{}, err
	}
	id, err := parseID(rawReservationID, MsgInvalidReservationID)
	if err != nil {
		return model.ReservationView{}, err
	}
	d, err := s.store.GetReservationDetail(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return model.ReservationView{}, fail(NotFound, MsgReservationNotFound)
	}
	if err != nil {
		return model.ReservationView{}, internal("get reservation", err)
	}
	if d.UserID != owner {
		return model.ReservationView{}, fail(Forbidden, MsgNotOwner)
	}
	return s.view(d), nil
}

// List returns the caller's reservations ordered by start. startDate and
// endDate, when not empty, bound the start date inclusively.
func (s *ReservationService) List(ctx context.Context, caller model.User, rawOwnerID, startDate, endDate string) ([]model.ReservationView, error) {
	owner, err := Authorize(caller, rawOwnerID)
	if err != nil {
		return nil, err
	}
	var from, to *time.Time
	if startDate != "" {
		d, err := schedule.ParseDate(startDate, s.loc)
		if err != nil {
			return nil, wrap(MalformedPayload, MsgBadDateFilter, err)
		}
		from = &d
	}
	if endDate != "" {
		d, err := schedule.ParseDate(endDate, s.loc)
		if err != nil {
			return nil, wrap(MalformedPayload, MsgBadDateFilter, err)
		}
		next := d.AddDate(0, 0, 1)
		to = &next
	}

	details, err := s.store.ListUserReservationDetails(ctx, owner, from, to)
	if err != nil {
		return nil, internal("list reservations", err)
	}
	out := make([]model.ReservationView, 0, len(details))
	for _, d := range details {
		out = append(out, s.view(d))
	}
	return out, nil
}

// Update changes the date, times or room of one of the caller's
// reservations. Omitted fields keep their current values and the booking
// is re-checked against the target room with itself excluded.
func (s *ReservationService) Update(ctx context.Context, caller model.User, rawOwnerID, rawReservationID string, in UpdateInput) (model.ReservationView, error) {
	owner, err := Authorize(caller, rawOwnerID)
	if err != nil {
		return model.ReservationView{}, err
	}
	id, err := parseID(rawReservationID, MsgInvalidReservationID)
	if err != nil {
		return model.ReservationView{}, err
	}

	var (
		updated model.Reservation
		room    model.Room
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		cur, err := lockOwned(ctx, tx, id, owner)
		if err != nil {
			return err
		}
		if in.empty() {
			return fail(MalformedPayload, MsgUpdateFieldsRequired)
		}

		roomID := cur.RoomID
		if in.RoomID != nil {
			roomID = *in.RoomID
		}
		room, err = lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}

		start, end := cur.StartTime.In(s.loc), cur.EndTime.In(s.loc)
		date := start.Format(schedule.DateLayout)
		from, until := start.Format(schedule.ClockLayout), end.Format(schedule.ClockLayout)
		if in.Date != nil {
			date = *in.Date
		}
		if in.StartTime != nil {
			from = *in.StartTime
		}
		if in.EndTime != nil {
			until = *in.EndTime
		}
		slot, err := schedule.ParseSlot(date, from, until, s.loc)
		if err != nil {
			return wrap(MalformedPayload, MsgBadSlotFormat, err)
		}
		if err := s.admit(ctx, tx, room, slot, cur.ID); err != nil {
			return err
		}

		updated = model.Reservation{ID: cur.ID, RoomID: room.ID, UserID: cur.UserID, StartTime: slot.Start, EndTime: slot.End}
		return storeWrite("update reservation", tx.UpdateReservation(ctx, updated))
	})
	if err != nil {
		return model.ReservationView{}, err
	}

	s.log.Info("reservation updated", zap.Uint64("reservation_id", updated.ID), zap.Uint64("room_id", room.ID))
	s.notify(ctx, queue.ReservationUpdated, updated, caller.Username, room.Name)
	return s.view(model.ReservationDetail{Reservation: updated, Username: caller.Username, RoomName: room.Name}), nil
}

// Delete removes one of the caller's reservations. Deleting it a second
// time reports NotFound.
func (s *ReservationService) Delete(ctx context.Context, caller model.User, rawOwnerID, rawReservationID string) error {
	owner, err := Authorize(caller, rawOwnerID)
	if err != nil {
		return err
	}
	id, err := parseID(rawReservationID, MsgInvalidReservationID)
	if err != nil {
		return err
	}

	var (
		gone     model.Reservation
		roomName string
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		cur, err := lockOwned(ctx, tx, id, owner)
		if err != nil {
			return err
		}
		// Same lock order as Update: reservation, then room.
		room, err := tx.LockRoom(ctx, cur.RoomID)
		if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
			return internal("lock room", err)
		}
		roomName = room.Name
		if err := tx.DeleteReservation(ctx, cur.ID); err != nil {
			if errors.Is(err, repository.ErrReservationNotFound) {
				return fail(NotFound, MsgReservationNotFound)
			}
			return internal("delete reservation", err)
		}
		gone = cur
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("reservation deleted", zap.Uint64("reservation_id", gone.ID))
	s.notify(ctx, queue.ReservationDeleted, gone, caller.Username, roomName)
	return nil
}

// admit runs the acceptance rules for slot on room inside tx.
func (s *ReservationService) admit(ctx context.Context, tx Tx, room model.Room, slot schedule.Interval, exclude uint64) error {
	existing, err := tx.RoomReservations(ctx, room.ID, slot)
	if err != nil {
		return internal("load room reservations", err)
	}
	booked := make([]schedule.Booked, 0, len(existing))
	for _, r := range existing {
		booked = append(booked, schedule.Booked{ID: r.ID, Interval: schedule.Interval{Start: r.StartTime, End: r.EndTime}})
	}
	err = schedule.Check(schedule.Request{
		Candidate:  slot,
		MaxMinutes: room.MaxTime,
		Now:        s.clock.Now(),
		CheckPast:  true,
		Existing:   booked,
		Exclude:    exclude,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schedule.ErrPastSlot):
		return wrap(TemporalConflict, MsgPastSlot, err)
	case errors.Is(err, schedule.ErrTooLong):
		return wrap(TemporalConflict, MsgTooLong, err)
	case errors.Is(err, schedule.ErrSlotTaken):
		return wrap(TemporalConflict, MsgSlotTaken, err)
	}
	return internal("check slot", err)
}

func lockRoom(ctx context.Context, tx Tx, id uint64) (model.Room, error) {
	room, err := tx.LockRoom(ctx, id)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return model.Room{}, fail(NotFound, MsgRoomNotFound)
	}
	if err != nil {
		return model.Room{}, internal("lock room", err)
	}
	return room, nil
}

// lockOwned locks a reservation and checks it belongs to owner.
func lockOwned(ctx context.Context, tx Tx, id, owner uint64) (model.Reservation, error) {
	cur, err := tx.LockReservation(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return model.Reservation{}, fail(NotFound, MsgReservationNotFound)
	}
	if err != nil {
		return model.Reservation{}, internal("lock reservation", err)
	}
	if cur.UserID != owner {
		return model.Reservation{}, fail(Forbidden, MsgNotOwner)
	}
	return cur, nil
}

// storeWrite maps a write error. A duplicate slot key means an identical
// booking committed first.
func storeWrite(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return wrap(TemporalConflict, MsgSlotTaken, err)
	}
	return internal(op, err)
}

func (s *ReservationService) view(d model.ReservationDetail) model.ReservationView {
	iv := schedule.Interval{Start: d.StartTime.In(s.loc), End: d.EndTime.In(s.loc)}
	return model.ReservationView{
		ID:       d.ID,
		User:     d.Username,
		Room:     d.RoomName,
		Date:     iv.Start.Format(schedule.DateLayout),
		TimeSpan: schedule.FormatSpan(iv),
	}
}

func (s *ReservationService) notify(ctx context.Context, t queue.EventType, r model.Reservation, username, roomName string) {
	if s.sink == nil {
		return
	}
	ev := queue.NewReservationEvent(t, r.ID, r.UserID, r.RoomID, r.StartTime, r.EndTime)
	ev.Username = username
	ev.RoomName = roomName

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.sink.Publish(pctx, ev); err != nil {
		s.log.Warn("reservation event not delivered",
			zap.String("event_id", ev.EventID),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}
