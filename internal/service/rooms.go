package service

import (
	"context"
	"errors"
	"strings"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/repository"
)

const msgInvalidRoomID = "Invalid room_id parameter"

// RoomInput is the body of a room creation request. MaxTime defaults to
// model.DefaultMaxTime when nil.
type RoomInput struct {
	Name     string
	Capacity uint32
	MaxTime  *int
}

// RoomService manages the room catalogue.
type RoomService struct {
	rooms *repository.RoomRepo
}

func NewRoomService(rooms *repository.RoomRepo) *RoomService {
	return &RoomService{rooms: rooms}
}

func (s *RoomService) List(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, internal("list rooms", err)
	}
	return rooms, nil
}

func (s *RoomService) Create(ctx context.Context, in RoomInput) (model.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Capacity == 0 {
		return model.Room{}, fail(MalformedPayload, MsgRoomFieldsRequired)
	}
	rm := model.Room{Name: name, Capacity: in.Capacity, MaxTime: model.DefaultMaxTime}
	if in.MaxTime != nil {
		if *in.MaxTime <= 0 {
			return model.Room{}, fail(MalformedPayload, MsgBadMaxTime)
		}
		rm.MaxTime = *in.MaxTime
	}
	if err := s.rooms.Create(ctx, &rm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Room{}, wrap(Conflict, MsgRoomExists, err)
		}
		return model.Room{}, internal("create room", err)
	}
	return rm, nil
}

// Delete removes a room and, through the foreign key, its reservations.
func (s *RoomService) Delete(ctx context.Context, rawRoomID string) error {
	id, err := parseID(rawRoomID, msgInvalidRoomID)
	if err != nil {
		return err
	}
	if err := s.rooms.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return fail(NotFound, MsgRoomNotFound)
		}
		return internal("delete room", err)
	}
	return nil
}
