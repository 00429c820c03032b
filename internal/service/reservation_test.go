package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/queue"
	"github.com/manishmaharjan/reservation-system/internal/service"
	"github.com/manishmaharjan/reservation-system/internal/service/servicetest"
)

type fixture struct {
	store  *servicetest.Store
	events *servicetest.Recorder
	svc    *service.ReservationService
	room   model.Room
	alice  model.User
	bob    model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: servicetest.NewStore(), events: &servicetest.Recorder{}}
	f.room = f.store.AddRoom("Room 1", 10, 180)
	f.alice = f.store.AddUser("alice")
	f.bob = f.store.AddUser("bob")
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	f.svc = service.NewReservationService(f.store, servicetest.Clock{T: now}, time.UTC, f.events, nil)
	return f
}

func at(day int, hour, min int) time.Time {
	return time.Date(2030, 1, day, hour, min, 0, 0, time.UTC)
}

func ownerID(u model.User) string { return uitoa(u.ID) }

func uitoa(n uint64) string { return strconv.FormatUint(n, 10) }

func ptr[T any](v T) *T { return &v }

func assertKind(t *testing.T, err error, kind service.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var se *service.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, msg, se.Msg)
}

func (f *fixture) create(t *testing.T, date, from, to string) (model.ReservationView, error) {
	t.Helper()
	return f.svc.Create(context.Background(), f.alice, ownerID(f.alice), service.CreateInput{
		Date: date, StartTime: from, EndTime: to, RoomID: f.room.ID,
	})
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)

	v, err := f.create(t, "2030-01-01", "11:00", "12:00")
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "alice", v.User)
	assert.Equal(t, "Room 1", v.Room)
	assert.Equal(t, "2030-01-01", v.Date)
	assert.Equal(t, "11:00:00 - 12:00:00", v.TimeSpan)

	stored, ok := f.store.Reservation(v.ID)
	require.True(t, ok)
	assert.Equal(t, at(1, 11, 0), stored.StartTime)
	assert.Equal(t, []queue.EventType{queue.ReservationCreated}, f.events.Types())
}

func TestCreateRejectsOverlaps(t *testing.T) {
	f := newFixture(t)
	f.store.AddReservation(f.room.ID, f.bob.ID, at(1, 11, 0), at(1, 12, 0))

	for _, c := range [][2]string{{"10:00", "11:01"}, {"10:59", "12:01"}, {"11:00", "12:00"}, {"12:00", "12:30"}} {
		_, err := f.create(t, "2030-01-01", c[0], c[1])
		assertKind(t, err, service.TemporalConflict, service.MsgSlotTaken)
	}
	assert.Equal(t, 1, f.store.Count())
	assert.Empty(t, f.events.Types())
}

func TestCreateRuleOrder(t *testing.T) {
	f := newFixture(t)
	f.store.AddReservation(f.room.ID, f.bob.ID, at(1, 6, 0), at(1, 7, 0))

	// past beats too long and taken
	_, err := f.create(t, "2030-01-01", "06:00", "23:00")
	assertKind(t, err, service.TemporalConflict, service.MsgPastSlot)

	_, err = f.create(t, "2030-01-01", "09:00", "12:01")
	assertKind(t, err, service.TemporalConflict, service.MsgTooLong)

	_, err = f.create(t, "2030-01-01", "09:00", "12:00")
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, "abc", service.CreateInput{})
	assertKind(t, err, service.InvalidIdentifier, service.MsgInvalidUserID)

	_, err = f.svc.Create(ctx, f.alice, "0", service.CreateInput{})
	assertKind(t, err, service.InvalidIdentifier, service.MsgInvalidUserID)

	_, err = f.svc.Create(ctx, f.alice, ownerID(f.bob), service.CreateInput{})
	assertKind(t, err, service.IdentityMismatch, service.MsgKeyMismatch)

	_, err = f.svc.Create(ctx, f.alice, ownerID(f.alice), service.CreateInput{Date: "2030-01-01", StartTime: "10:00", RoomID: f.room.ID})
	assertKind(t, err, service.MalformedPayload, service.MsgCreateFieldsRequired)

	// room lookup comes before slot parsing
	_, err = f.svc.Create(ctx, f.alice, ownerID(f.alice), service.CreateInput{Date: "bad", StartTime: "10:00", EndTime: "11:00", RoomID: 999})
	assertKind(t, err, service.NotFound, service.MsgRoomNotFound)

	_, err = f.create(t, "2030/01/01", "10:00", "11:00")
	assertKind(t, err, service.MalformedPayload, service.MsgBadSlotFormat)
}

func TestCreateAcrossMidnight(t *testing.T) {
	f := newFixture(t)

	v, err := f.create(t, "2030-01-01", "23:00", "01:00")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01", v.Date)
	assert.Equal(t, "23:00:00 - 01:00:00", v.TimeSpan)

	stored, _ := f.store.Reservation(v.ID)
	assert.Equal(t, at(2, 1, 0), stored.EndTime)

	// the next morning is blocked up to and including 01:00
	_, err = f.create(t, "2030-01-02", "00:30", "02:00")
	assertKind(t, err, service.TemporalConflict, service.MsgSlotTaken)
}

func TestCreateInLocalZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	store := servicetest.NewStore()
	room := store.AddRoom("Room 1", 10, 180)
	u := store.AddUser("alice")
	svc := service.NewReservationService(store, servicetest.Clock{T: at(1, 0, 0)}, loc, nil, nil)

	v, err := svc.Create(context.Background(), u, ownerID(u), service.CreateInput{Date: "2030-01-01", StartTime: "10:00", EndTime: "11:00", RoomID: room.ID})
	require.NoError(t, err)
	assert.Equal(t, "10:00:00 - 11:00:00", v.TimeSpan)

	stored, _ := store.Reservation(v.ID)
	assert.Equal(t, at(1, 8, 0), stored.StartTime)
}

func TestGetReservation(t *testing.T) {
	f := newFixture(t)
	mine := f.store.AddReservation(f.room.ID, f.alice.ID, at(1, 10, 0), at(1, 11, 0))
	theirs := f.store.AddReservation(f.room.ID, f.bob.ID, at(1, 12, 0), at(1, 13, 0))
	ctx := context.Background()

	v, err := f.svc.Get(ctx, f.alice, ownerID(f.alice), uitoa(mine.ID))
	require.NoError(t, err)
	assert.Equal(t, model.ReservationView{ID: mine.ID, User: "alice", Room: "Room 1", Date: "2030-01-01", TimeSpan: "10:00:00 - 11:00:00"}, v)

	_, err = f.svc.Get(ctx, f.alice, ownerID(f.alice), uitoa(theirs.ID))
	assertKind(t, err, service.Forbidden, service.MsgNotOwner)

	_, err = f.svc.Get(ctx, f.alice, ownerID(f.alice), "424242")
	assertKind(t, err, service.NotFound, service.MsgReservationNotFound)

	_, err = f.svc.Get(ctx, f.alice, ownerID(f.alice), "x1")
	assertKind(t, err, service.InvalidIdentifier, service.MsgInvalidReservationID)

	// identity is checked before the reservation is looked at
	_, err = f.svc.Get(ctx, f.alice, ownerID(f.bob), uitoa(theirs.ID))
	assertKind(t, err, service.IdentityMismatch, service.MsgKeyMismatch)
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	f.store.AddReservation(f.room.ID, f.alice.ID, at(3, 10, 0), at(3, 11, 0))
	f.store.AddReservation(f.room.ID, f.alice.ID, at(1, 10, 0), at(1, 11, 0))
	f.store.AddReservation(f.room.ID, f.alice.ID, at(5, 10, 0), at(5, 11, 0))
	f.store.AddReservation(f.room.ID, f.bob.ID, at(2, 10, 0), at(2, 11, 0))
	ctx := context.Background()

	all, err := f.svc.List(ctx, f.alice, ownerID(f.alice), "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2030-01-01", all[0].Date)
	assert.Equal(t, "2030-01-05", all[2].Date)

	some, err := f.svc.List(ctx, f.alice, ownerID(f.alice), "2030-01-02", "2030-01-03")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "2030-01-03", some[0].Date)

	_, err = f.svc.List(ctx, f.alice, ownerID(f.alice), "yesterday", "")
	assertKind(t, err, service.MalformedPayload, service.MsgBadDateFilter)
}

func TestUpdateReservation(t *testing.T) {
	f := newFixture(t)
	mine := f.store.AddReservation(f.room.ID, f.alice.ID, at(1, 11, 0), at(1, 12, 0))
	ctx := context.Background()

	// sliding over itself is fine
	v, err := f.svc.Update(ctx, f.alice, ownerID(f.alice), uitoa(mine.ID), service.UpdateInput{StartTime: ptr("11:30"), EndTime: ptr("12:30")})
	require.NoError(t, err)
	assert.Equal(t, "11:30:00 - 12:30:00", v.TimeSpan)

	// only the date moves; clocks are kept
	v, err = f.svc.Update(ctx, f.alice, ownerID(f.alice), uitoa(mine.ID), service.UpdateInput{Date: ptr("2030-01-04")})
	require.NoError(t, err)
	assert.Equal(t, "2030-01-04", v.Date)
	assert.Equal(t, "11:30:00 - 12:30:00", v.TimeSpan)

	other := f.store.AddRoom("Room 2", 20, 60)
	v, err = f.svc.Update(ctx, f.alice, ownerID(f.alice), uitoa(mine.ID), service.UpdateInput{RoomID: ptr(other.ID)})
	require.NoError(t, err)
	assert.Equal(t, "Room 2", v.Room)

	stored, _ := f.store.Reservation(mine.ID)
	assert.Equal(t, other.ID, stored.RoomID)
	assert.Equal(t, at(4, 11, 30), stored.StartTime)
	assert.Equal(t, []queue.EventType{queue.ReservationUpdated, queue.ReservationUpdated, queue.ReservationUpdated}, f.events.Types())
}

func TestUpdateReservationFailures(t *testing.T) {
	f := newFixture(t)
	mine := f.store.AddReservation(f.room.ID, f.alice.ID, at(1, 11, 0), at(1, 12, 0))
	theirs := f.store.AddReservation(f.room.ID, f.bob.ID, at(1, 14, 0), at(1, 15, 0))
	small := f.store.AddRoom("Closet", 2, 30)
	ctx := context.Background()
	me := ownerID(f.alice)

	// lookup and ownership come before the empty-body check
	_, err := f.svc.Update(ctx, f.alice, me, "999", service.UpdateInput{})
	assertKind(t, err, service.NotFound, service.MsgReservationNotFound)
	_, err = f.svc.Update(ctx, f.alice, me, uitoa(theirs.ID), service.UpdateInput{})
	assertKind(t, err, service.Forbidden, service.MsgNotOwner)
	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{})
	assertKind(t, err, service.MalformedPayload, service.MsgUpdateFieldsRequired)

	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{EndTime: ptr("14:00")})
	assertKind(t, err, service.TemporalConflict, service.MsgSlotTaken)

	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{RoomID: ptr(small.ID)})
	assertKind(t, err, service.TemporalConflict, service.MsgTooLong)

	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{RoomID: ptr(uint64(999))})
	assertKind(t, err, service.NotFound, service.MsgRoomNotFound)

	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{StartTime: ptr("07:00")})
	assertKind(t, err, service.TemporalConflict, service.MsgPastSlot)

	_, err = f.svc.Update(ctx, f.alice, me, uitoa(mine.ID), service.UpdateInput{StartTime: ptr("7 am")})
	assertKind(t, err, service.MalformedPayload, service.MsgBadSlotFormat)

	stored, _ := f.store.Reservation(mine.ID)
	assert.Equal(t, at(1, 11, 0), stored.StartTime)
	assert.Equal(t, at(1, 12, 0), stored.EndTime)
	assert.Equal(t, f.room.ID, stored.RoomID)
	assert.Empty(t, f.events.Types())
}

func TestDeleteReservation(t *testing.T) {
	f := newFixture(t)
	mine := f.store.AddReservation(f.room.ID, f.alice.ID, at(1, 11, 0), at(1, 12, 0))
	theirs := f.store.AddReservation(f.room.ID, f.bob.ID, at(1, 14, 0), at(1, 15, 0))
	ctx := context.Background()
	me := ownerID(f.alice)

	err := f.svc.Delete(ctx, f.alice, me, uitoa(theirs.ID))
	assertKind(t, err, service.Forbidden, service.MsgNotOwner)

	require.NoError(t, f.svc.Delete(ctx, f.alice, me, uitoa(mine.ID)))
	_, ok := f.store.Reservation(mine.ID)
	assert.False(t, ok)

	err = f.svc.Delete(ctx, f.alice, me, uitoa(mine.ID))
	assertKind(t, err, service.NotFound, service.MsgReservationNotFound)

	// the freed slot can be booked again
	_, err = f.create(t, "2030-01-01", "11:00", "12:00")
	assert.NoError(t, err)
	assert.Equal(t, []queue.EventType{queue.ReservationDeleted, queue.ReservationCreated}, f.events.Types())

	deleted := f.events.Events[0]
	assert.Equal(t, mine.ID, deleted.ReservationID)
	assert.Equal(t, f.room.Name, deleted.RoomName)
	assert.Equal(t, f.alice.Username, deleted.Username)
	assert.NotEmpty(t, deleted.StartsAt)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New("broker down")

	v, err := f.create(t, "2030-01-01", "11:00", "12:00")
	require.NoError(t, err)
	_, ok := f.store.Reservation(v.ID)
	assert.True(t, ok)
	assert.Len(t, f.events.Events, 1)
}

func TestSinksFanOut(t *testing.T) {
	a, b := &servicetest.Recorder{}, &servicetest.Recorder{Err: errors.New("nope")}
	err := service.Sinks{a, nil, b}.Publish(context.Background(), queue.ReservationEvent{Type: queue.ReservationCreated})
	assert.EqualError(t, err, "nope")
	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
}
