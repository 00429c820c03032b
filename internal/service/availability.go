package service

import (
	"context"
	"time"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/schedule"
)

// AvailabilityService answers which rooms are free at a moment.
type AvailabilityService struct {
	store Store
	loc   *time.Location
}

func NewAvailabilityService(store Store, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{store: store, loc: loc}
}

// Location reports the zone query moments are interpreted in.
func (s *AvailabilityService) Location() *time.Location { return s.loc }

// Available returns the rooms free for duration minutes starting at at.
// With no duration each room is checked for its own max_time; a duration
// longer than a room's max_time excludes that room.
func (s *AvailabilityService) Available(ctx context.Context, at time.Time, duration *int) ([]model.Room, error) {
	if duration != nil && *duration <= 0 {
		return nil, fail(MalformedPayload, MsgBadDuration)
	}

	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, internal("list rooms", err)
	}
	if len(rooms) == 0 {
		return []model.Room{}, nil
	}

	// one query covers the longest window any room can be asked about
	widest := 0
	for _, rm := range rooms {
		if rm.MaxTime > widest {
			widest = rm.MaxTime
		}
	}
	if duration != nil && *duration < widest {
		widest = *duration
	}
	reservations, err := s.store.ListReservationsWithin(ctx, at, at.Add(time.Duration(widest)*time.Minute))
	if err != nil {
		return nil, internal("list reservations", err)
	}
	byRoom := make(map[uint64][]schedule.Interval, len(rooms))
	for _, r := range reservations {
		byRoom[r.RoomID] = append(byRoom[r.RoomID], schedule.Interval{Start: r.StartTime, End: r.EndTime})
	}

	free := make([]model.Room, 0, len(rooms))
	for _, rm := range rooms {
		minutes := rm.MaxTime
		if duration != nil {
			if *duration > rm.MaxTime {
				continue
			}
			minutes = *duration
		}
		candidate := schedule.Interval{Start: at, End: at.Add(time.Duration(minutes) * time.Minute)}
		if roomFree(byRoom[rm.ID], candidate) {
			free = append(free, rm)
		}
	}
	return free, nil
}

func roomFree(booked []schedule.Interval, candidate schedule.Interval) bool {
	for _, b := range booked {
		if schedule.Intersects(b, candidate) {
			return false
		}
	}
	return true
}
