package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/service"
)

// ReservationHandler serves /api/users/:user_id/reservations/.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(s *service.ReservationService) *ReservationHandler {
	if s == nil {
		panic("nil reservation service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: s}
}

type createReservationReq struct {
	Date      string `json:"date"`
	StartTime string `json:"start-time"`
	EndTime   string `json:"end-time"`
	RoomID    flexID `json:"roomId"`
}

type updateReservationReq struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start-time"`
	EndTime   *string `json:"end-time"`
	RoomID    *flexID `json:"roomId"`
}

// List returns the caller's reservations, optionally limited by the
// start_date and end_date query parameters.
func (h *ReservationHandler) List(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	views, err := h.Reservations.List(ctx, u, c.Param("user_id"), c.QueryParam("start_date"), c.QueryParam("end_date"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Create books a room. The new id is returned in the reservation_id header.
func (h *ReservationHandler) Create(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	// identity is checked before the body is looked at
	if _, err := service.Authorize(u, c.Param("user_id")); err != nil {
		return respond(c, err)
	}
	var req createReservationReq
	if err := bindJSON(c, &req); err != nil {
		return respond(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Reservations.Create(ctx, u, c.Param("user_id"), service.CreateInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		RoomID:    uint64(req.RoomID),
	})
	if err != nil {
		return respond(c, err)
	}
	c.Response().Header().Set("reservation_id", strconv.FormatUint(v.ID, 10))
	return c.JSON(http.StatusCreated, echo.Map{"message": "Reservation created successfully"})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Reservations.Get(ctx, u, c.Param("user_id"), c.Param("reservation_id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Update changes any of date, start-time, end-time and roomId.
func (h *ReservationHandler) Update(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	if _, err := service.Authorize(u, c.Param("user_id")); err != nil {
		return respond(c, err)
	}
	var req updateReservationReq
	if err := bindJSON(c, &req); err != nil {
		return respond(c, err)
	}
	in := service.UpdateInput{Date: req.Date, StartTime: req.StartTime, EndTime: req.EndTime}
	if req.RoomID != nil {
		id := uint64(*req.RoomID)
		in.RoomID = &id
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Reservations.Update(ctx, u, c.Param("user_id"), c.Param("reservation_id"), in); err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation updated successfully"})
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reservations.Delete(ctx, u, c.Param("user_id"), c.Param("reservation_id")); err != nil {
		return respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
