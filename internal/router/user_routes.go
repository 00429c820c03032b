package router

import (
	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/middleware"
)

// RegisterUsers registers registration, the admin user listing and the
// per-user profile and reservation routes. Everything under
// /api/users/:user_id/ requires an API key; the handlers check that it
// belongs to :user_id.
func RegisterUsers(e *echo.Echo, d Deps) {
	e.POST("/api/users/", d.Users.Register, d.RateLimit)
	e.GET("/api/users/", d.Users.List, middleware.RequireAdmin(d.Auth), d.RateLimit)

	g := e.Group("/api/users/:user_id", middleware.APIKeyAuth(d.Auth), d.RateLimit)
	g.GET("/", d.Users.Get)
	g.PUT("/", d.Users.Update)
	g.DELETE("/", d.Users.Delete)

	g.GET("/reservations/", d.Reservations.List)
	g.POST("/reservations/", d.Reservations.Create)
	g.GET("/reservations/:reservation_id/", d.Reservations.Get)
	g.PUT("/reservations/:reservation_id/", d.Reservations.Update)
	g.DELETE("/reservations/:reservation_id/", d.Reservations.Delete)
}
