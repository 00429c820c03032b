package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/service"
)

// RequireAdmin admits only requests carrying an admin API key. A missing,
// unknown or non-admin key is answered with 401, the same as an unknown
// key on a user route.
func RequireAdmin(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := authenticate(c, auth)
			if err != nil && service.KindOf(err) != service.Unauthorized {
				return err
			}
			if err != nil || !u.Admin {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgNotAdmin})
			}
			setUser(c, u)
			return next(c)
		}
	}
}
