// Package handler holds the echo handlers of the reservation API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/middleware"
	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// purgeCache drops cached availability and room answers after a committed
// change. A failed purge is logged; the change itself already succeeded.
func purgeCache(c echo.Context, p Purger, log *zap.Logger, reason string) {
	if p == nil {
		return
	}
	if err := p.Purge(context.WithoutCancel(c.Request().Context())); err != nil {
		log.Warn("cache purge failed", zap.String("after", reason), zap.Error(err))
	}
}

var kindStatus = map[service.Kind]int{
	service.InvalidIdentifier:        http.StatusBadRequest,
	service.IdentityMismatch:         http.StatusUnauthorized,
	service.NotFound:                 http.StatusNotFound,
	service.Forbidden:                http.StatusForbidden,
	service.MalformedPayload:         http.StatusBadRequest,
	service.TemporalConflict:         http.StatusConflict,
	service.UnsupportedPayloadFormat: http.StatusUnsupportedMediaType,
	service.Conflict:                 http.StatusConflict,
	service.Unauthorized:             http.StatusUnauthorized,
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(k service.Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// respond renders err as {"error": msg}. Internal failures are handed to
// echo's error handler so the cause reaches the request log.
func respond(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.Internal {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return c.JSON(StatusOf(se.Kind), echo.Map{"error": se.Msg})
}

// bindJSON decodes a JSON body into dst. A body that is not declared as
// JSON gets 415; one that does not decode gets 400.
func bindJSON(c echo.Context, dst any) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != echo.MIMEApplicationJSON {
		return &service.Error{Kind: service.UnsupportedPayloadFormat, Msg: service.MsgNotJSON}
	}
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(dst); err != nil {
		return &service.Error{Kind: service.MalformedPayload, Msg: service.MsgBadJSON, Err: err}
	}
	return nil
}

// caller returns the authenticated user. Routes using it sit behind
// APIKeyAuth, so a missing user is a wiring error.
func caller(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, errors.New("no authenticated user in context")
	}
	return u, nil
}

// flexID accepts an id sent either as a JSON number or as a numeric string.
type flexID uint64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexID(n)
	return nil
}
