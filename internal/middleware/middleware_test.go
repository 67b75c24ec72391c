package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(secret), RequireRole("ADMIN", "MANAGER"))
	g.GET("/whoami", func(c echo.Context) error {
		id, ok := UserID(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/admin/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/admin/whoami", "Bearer junk").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin/whoami", bearer(t, 7, "CUSTOMER")).Code)

	rec := serve(e, http.MethodGet, "/admin/whoami", bearer(t, 7, "MANAGER"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"MANAGER"}`, rec.Body.String())
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "user_route", Prefix: "rl",
	}
	bucket := NewTokenBucket(cfg, rdb, zap.NewNop())
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	bucket.now = func() time.Time { return now }

	e := echo.New()
	e.POST("/v1/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		JWTAuth(secret), bucket.Middleware())
	auth := bearer(t, 1, "CUSTOMER")

	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/bookings", auth).Code)
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/bookings", auth).Code)
	rec := serve(e, http.MethodPost, "/v1/bookings", auth)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// another user has their own bucket
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/bookings", bearer(t, 2, "CUSTOMER")).Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/bookings", auth).Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	bucket := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}, rdb, nil)
	mr.Close()

	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, bucket.Middleware())
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/x", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/x", "").Code)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ctxUserID, uint64(9))

	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:9:route:POST /v1/bookings", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:POST /v1/bookings", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}, c))
}

func TestResponseCache(t *testing.T) {
	mr, rdb := newRedis(t)
	cache := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1024,
	}, rdb, nil)

	calls := 0
	e := echo.New()
	e.GET("/v1/tours/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
	}, cache.Middleware())
	e.GET("/v1/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, cache.Middleware())

	first := serve(e, http.MethodGet, "/v1/tours/1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := serve(e, http.MethodGet, "/v1/tours/1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

	// routes sharing a pattern get separate entries
	serve(e, http.MethodGet, "/v1/tours/2", "")
	assert.Equal(t, 2, calls)

	serve(e, http.MethodGet, "/v1/missing", "")
	serve(e, http.MethodGet, "/v1/missing", "")
	assert.Equal(t, 4, calls)

	require.NoError(t, cache.Invalidate(context.Background()))
	assert.Empty(t, mr.Keys())
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/v1/tours/1", "").Header().Get("X-Cache"))
}

func TestResponseCacheSkipsLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cache := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8,
	}, rdb, nil)
	e := echo.New()
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "0123456789abcdef") }, cache.Middleware())

	assert.Equal(t, "0123456789abcdef", serve(e, http.MethodGet, "/big", "").Body.String())
	assert.Empty(t, mr.Keys())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "full") })

	serve(e, http.MethodGet, "/healthz", "")
	rec := serve(e, http.MethodGet, "/boom", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, int64(http.StatusConflict), entry.ContextMap()["status"])
	assert.Equal(t, "/boom", entry.ContextMap()["route"])
}
