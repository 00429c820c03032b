package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/model"
)

// CurrentUser returns the user stored by APIKeyAuth or RequireAdmin.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ContextUser).(model.User)
	return u, ok
}

// currentUserID is the rate-limit identity of the request: the user id
// when authenticated, "anon" otherwise.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
