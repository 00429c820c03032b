package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/service"
)

// UserHandler serves registration and the /api/users/ resources.
type UserHandler struct {
	Users *service.UserService
	// Cache is purged after an account is deleted; its reservations cascade.
	Cache Purger
	Log   *zap.Logger
}

func NewUserHandler(s *service.UserService, cache Purger, logger *zap.Logger) *UserHandler {
	if s == nil {
		panic("nil user service passed to NewUserHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{Users: s, Cache: cache, Log: logger}
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type updateUserReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Register creates a user. The raw API key and the user id travel back in
// the api_key and user_id response headers; the key is not retrievable
// afterwards.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindJSON(c, &req); err != nil {
		return respond(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	reg, err := h.Users.Register(ctx, req.Username, req.Email, false)
	if err != nil {
		return respond(c, err)
	}
	c.Response().Header().Set("api_key", reg.APIKey)
	c.Response().Header().Set("user_id", strconv.FormatUint(reg.User.ID, 10))
	return c.JSON(http.StatusCreated, reg.User)
}

// List is admin only.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	got, err := h.Users.Get(ctx, u, c.Param("user_id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, got)
}

func (h *UserHandler) Update(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	if _, err := service.Authorize(u, c.Param("user_id")); err != nil {
		return respond(c, err)
	}
	var req updateUserReq
	if err := bindJSON(c, &req); err != nil {
		return respond(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	updated, err := h.Users.Update(ctx, u, c.Param("user_id"), service.UserUpdate{Username: req.Username, Email: req.Email})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) Delete(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, u, c.Param("user_id")); err != nil {
		return respond(c, err)
	}
	purgeCache(c, h.Cache, h.Log, "user deleted")
	return c.NoContent(http.StatusNoContent)
}
