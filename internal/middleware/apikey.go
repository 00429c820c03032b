package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

// Context keys set by APIKeyAuth and RequireAdmin.
const (
	ContextUser   = "user"    // model.User
	ContextUserID = "user_id" // decimal user id, used for rate-limit keys
)

// Authenticator resolves a raw API key to the user it belongs to.
// *service.UserService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.User, error)
}

// APIKeyAuth rejects requests without a valid API key with 401 and stores
// the authenticated user in the context for the handlers.
func APIKeyAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := authenticate(c, auth)
			if err != nil {
				if service.KindOf(err) == service.Unauthorized {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgIncorrectKey})
				}
				return err
			}
			setUser(c, u)
			return next(c)
		}
	}
}

// rawKey reads the credential from the Api-key header. Api_key and an
// Authorization bearer token are accepted as well.
func rawKey(c echo.Context) string {
	h := c.Request().Header
	if v := strings.TrimSpace(h.Get("Api-key")); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Get("Api_key")); v != "" {
		return v
	}
	if auth := h.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func authenticate(c echo.Context, auth Authenticator) (model.User, error) {
	raw := rawKey(c)
	if raw == "" {
		return model.User{}, &service.Error{Kind: service.Unauthorized, Msg: service.MsgIncorrectKey}
	}
	return auth.Authenticate(c.Request().Context(), raw)
}

func setUser(c echo.Context, u model.User) {
	c.Set(ContextUser, u)
	c.Set(ContextUserID, strconv.FormatUint(u.ID, 10))
}
