package router

import (
	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/middleware"
)

// RegisterRooms registers the room catalogue and the availability search.
// Reads are public and cached; room writes need an admin key.
func RegisterRooms(e *echo.Echo, d Deps) {
	e.GET("/api/rooms/", d.Rooms.List, d.RateLimit, d.Cache)
	e.POST("/api/rooms/", d.Rooms.Create, middleware.RequireAdmin(d.Auth), d.RateLimit)
	e.DELETE("/api/rooms/:room_id/", d.Rooms.Delete, middleware.RequireAdmin(d.Auth), d.RateLimit)

	e.GET("/api/rooms_available/", d.Availability.Rooms, d.RateLimit, d.Cache)
}
