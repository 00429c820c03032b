// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/handler"
	"github.com/manishmaharjan/reservation-system/internal/middleware"
)

// Deps carries everything the routes need. RateLimit and Cache may be
// pass-through middleware when Redis is not configured.
type Deps struct {
	Users        *handler.UserHandler
	Reservations *handler.ReservationHandler
	Rooms        *handler.RoomHandler
	Availability *handler.AvailabilityHandler
	Auth         middleware.Authenticator
	DB           handler.Pinger
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// New returns an echo instance with the global middleware installed.
// Paths are matched with or without a trailing slash.
func New(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Pre(echomw.AddTrailingSlash())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	return e
}

// Register installs every route of the API.
func Register(e *echo.Echo, d Deps) {
	if d.RateLimit == nil {
		d.RateLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if d.Cache == nil {
		d.Cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	RegisterRoutes(e, d.DB)
	RegisterUsers(e, d)
	RegisterRooms(e, d)
}

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz/", handler.Health(db))
}

// errorHandler renders errors as {"error": msg}, matching what handlers
// write themselves.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok && code < 500 {
				msg = s
			}
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, map[string]string{"error": msg})
		}
		if werr != nil {
			logger.Error("write error response", zap.Error(werr))
		}
	}
}
