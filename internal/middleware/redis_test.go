package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishmaharjan/reservation-system/internal/config"
	"github.com/manishmaharjan/reservation-system/internal/queue"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

var cacheCfg = config.CacheConfig{
	Enabled:      true,
	Methods:      map[string]bool{http.MethodGet: true},
	TTL:          time.Minute,
	KeyStrategy:  "route_query",
	Prefix:       "cache",
	MaxBodyBytes: 1 << 20,
}

// cachedApp serves /rooms/ behind the cache and counts handler calls.
// ?status=N makes the handler answer with N.
func cachedApp(rdb *redis.Client) (*echo.Echo, *int) {
	calls := 0
	h := func(c echo.Context) error {
		calls++
		c.Response().Header().Set(echo.HeaderXRequestID, "req-1")
		status := http.StatusOK
		if c.QueryParam("status") == "404" {
			status = http.StatusNotFound
		}
		return c.JSON(status, echo.Map{"n": calls})
	}
	e := echo.New()
	e.GET("/rooms/", h, NewRedisCache(cacheCfg, rdb))
	e.POST("/rooms/", h, NewRedisCache(cacheCfg, rdb))
	return e, &calls
}

func send(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRedisCacheReplaysHits(t *testing.T) {
	mr, rdb := newRedis(t)
	e, calls := cachedApp(rdb)

	rec := send(e, http.MethodGet, "/rooms/?date=2030-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())

	rec = send(e, http.MethodGet, "/rooms/?date=2030-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.Empty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, 1, *calls)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	rec = send(e, http.MethodGet, "/rooms/?date=2030-01-02")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, *calls)
}

func TestRedisCacheStoresOnlyOK(t *testing.T) {
	mr, rdb := newRedis(t)
	e, calls := cachedApp(rdb)

	for i := 0; i < 2; i++ {
		rec := send(e, http.MethodGet, "/rooms/?status=404")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, *calls)
	assert.Empty(t, mr.Keys())

	rec := send(e, http.MethodPost, "/rooms/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, mr.Keys())
}

func TestCachePurgerDropsPrefixedKeys(t *testing.T) {
	mr, rdb := newRedis(t)
	e, calls := cachedApp(rdb)
	require.NoError(t, mr.Set("rl:ip:192.0.2.1", "keep"))

	send(e, http.MethodGet, "/rooms/?date=2030-01-01")
	send(e, http.MethodGet, "/rooms/?date=2030-01-02")
	require.Len(t, mr.Keys(), 3)

	p := NewCachePurger(cacheCfg, rdb, nil)
	require.NotNil(t, p)
	require.NoError(t, p.Purge(context.Background()))
	assert.Equal(t, []string{"rl:ip:192.0.2.1"}, mr.Keys())

	rec := send(e, http.MethodGet, "/rooms/?date=2030-01-01")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, *calls)

	ev := queue.NewReservationEvent(queue.ReservationCreated, 1, 2, 1, time.Time{}, time.Time{})
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Equal(t, []string{"rl:ip:192.0.2.1"}, mr.Keys())
}

func TestTokenBucket(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, nil))

	from := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := from("192.0.2.1:1234")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = from("192.0.2.1:1234")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = from("192.0.2.1:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body.Error)
	assert.Equal(t, 60, body.RetryAfter)

	// other clients have their own bucket
	assert.Equal(t, http.StatusNoContent, from("198.51.100.7:1").Code)

	assert.True(t, mr.Exists("rl:ip:192.0.2.1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("rl:ip:192.0.2.1"))

	// fails open once Redis is gone
	mr.Close()
	assert.Equal(t, http.StatusNoContent, from("192.0.2.1:1234").Code)
}
