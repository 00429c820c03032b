package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/service"
)

// Purger drops cached responses that depend on rooms or reservations.
type Purger interface {
	Purge(ctx context.Context) error
}

// RoomHandler serves the room catalogue. Writes are admin only.
type RoomHandler struct {
	Rooms *service.RoomService
	Cache Purger // optional
	Log   *zap.Logger
}

func NewRoomHandler(s *service.RoomService, cache Purger, logger *zap.Logger) *RoomHandler {
	if s == nil {
		panic("nil room service passed to NewRoomHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomHandler{Rooms: s, Cache: cache, Log: logger}
}

type createRoomReq struct {
	Name     string `json:"room_name"`
	Capacity uint32 `json:"capacity"`
	MaxTime  *int   `json:"max_time"`
}

func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := bindJSON(c, &req); err != nil {
		return respond(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rm, err := h.Rooms.Create(ctx, service.RoomInput{Name: req.Name, Capacity: req.Capacity, MaxTime: req.MaxTime})
	if err != nil {
		return respond(c, err)
	}
	purgeCache(c, h.Cache, h.Log, "room created")
	return c.JSON(http.StatusCreated, rm)
}

// Delete removes the room and every reservation on it.
func (h *RoomHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Rooms.Delete(ctx, c.Param("room_id")); err != nil {
		return respond(c, err)
	}
	purgeCache(c, h.Cache, h.Log, "room deleted")
	return c.NoContent(http.StatusNoContent)
}
