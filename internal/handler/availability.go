package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/schedule"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

// AvailabilityHandler serves /api/rooms_available/.
type AvailabilityHandler struct {
	Availability *service.AvailabilityService
}

func NewAvailabilityHandler(s *service.AvailabilityService) *AvailabilityHandler {
	if s == nil {
		panic("nil availability service passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Availability: s}
}

type availabilityResp struct {
	Date           string       `json:"date"`
	Time           string       `json:"time"`
	AvailableRooms []model.Room `json:"available_rooms"`
}

// Rooms answers which rooms are free at date+time for duration minutes.
// Without duration each room is checked for its own max_time.
func (h *AvailabilityHandler) Rooms(c echo.Context) error {
	date, clock := c.QueryParam("date"), c.QueryParam("time")
	if date == "" || clock == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.MsgAvailabilityRequired})
	}
	at, err := schedule.ParseMoment(date, clock, h.Availability.Location())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.MsgBadMoment})
	}
	var duration *int
	if raw := strings.TrimSpace(c.QueryParam("duration")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": service.MsgBadDuration})
		}
		duration = &n
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rooms, err := h.Availability.Available(ctx, at, duration)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{Date: date, Time: clock, AvailableRooms: rooms})
}
