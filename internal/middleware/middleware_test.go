package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/manishmaharjan/reservation-system/internal/config"
	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/service"
)

type keyTable map[string]model.User

func (k keyTable) Authenticate(_ context.Context, raw string) (model.User, error) {
	if raw == "explode" {
		return model.User{}, errors.New("db down")
	}
	u, ok := k[raw]
	if !ok {
		return model.User{}, &service.Error{Kind: service.Unauthorized, Msg: service.MsgIncorrectKey}
	}
	return u, nil
}

var keys = keyTable{
	"user-key":  {ID: 7, Username: "alice"},
	"admin-key": {ID: 1, Username: "admin", Admin: true},
}

func serve(t *testing.T, mw echo.MiddlewareFunc, header, value string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c
}

func TestAPIKeyAuth(t *testing.T) {
	mw := APIKeyAuth(keys)

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"api-key header", "Api-key", "user-key", http.StatusNoContent},
		{"underscore header", "Api_key", "user-key", http.StatusNoContent},
		{"bearer token", "Authorization", "Bearer user-key", http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"unknown", "Api-key", "nope", http.StatusUnauthorized},
		{"store failure", "Api-key", "explode", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serve(t, mw, tc.header, tc.value)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Incorrect api key."}`, rec.Body.String())
			}
		})
	}

	_, c := serve(t, mw, "Api-key", "user-key")
	u, ok := CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "7", currentUserID(c))
}

func TestRequireAdmin(t *testing.T) {
	mw := RequireAdmin(keys)

	rec, c := serve(t, mw, "Api-key", "admin-key")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	u, _ := CurrentUser(c)
	assert.True(t, u.Admin)

	for _, key := range []string{"user-key", "nope", ""} {
		rec, _ := serve(t, mw, "Api-key", key)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, key)
		assert.JSONEq(t, `{"error":"The provided Api-key does not belong to an admin account"}`, rec.Body.String())
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms_available/", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/rooms_available/")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /api/rooms_available/", buildRateKey(cfg, c))

	c.Set(ContextUserID, "42")
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:42", buildRateKey(cfg, c))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"available_rooms":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"available_rooms":[]}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/rooms_available/")
		return cacheKeyFrom(cfg, c)
	}
	a := key("/api/rooms_available/?date=2030-01-01&time=10:00")
	assert.Equal(t, a, key("/api/rooms_available/?time=10:00&date=2030-01-01"))
	assert.NotEqual(t, a, key("/api/rooms_available/?date=2030-01-02&time=10:00"))
	assert.Contains(t, a, "cache:")
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	rec, _ := serve(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil), "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var p *CachePurger
	assert.NoError(t, p.Purge(context.Background()))
	assert.Nil(t, NewCachePurger(config.CacheConfig{Enabled: true}, nil, nil))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mw := RequestLogger(zap.New(core))

	rec, _ := serve(t, mw, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, int64(http.StatusNoContent), entry.ContextMap()["status"])

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/boom", nil), httptest.NewRecorder())
	err := mw(func(echo.Context) error { return errors.New("boom") })(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, c.Response().Status)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)
}
