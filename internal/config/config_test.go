package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/model"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "tours",
		"DB_HOST":                "127.0.0.1",
		"DB_PORT":                "3306",
		"DB_NAME":                "tours",
		"JWT_SECRET":             "s3cret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_LOCK_WAIT", "3s")
	t.Setenv("DB_MIGRATE", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 3*time.Second, cfg.DBLockWait)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, "tour_booking", cfg.MetricsNamespace)
}

func TestLoadReportsEveryMissingVar(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL_MIN")
}

func TestLoadBookingPolicy(t *testing.T) {
	p, err := LoadBookingPolicy()
	require.NoError(t, err)
	assert.Equal(t, 20, p.MaxPartySize)
	assert.Equal(t, model.BookingConfirmed, p.InitialStatus)

	t.Setenv("BOOKING_INITIAL_STATUS", "PENDING")
	t.Setenv("BOOKING_COUNT_PENDING", "true")
	t.Setenv("BOOKING_NUMBER_PREFIX", "tb")
	t.Setenv("BOOKING_RETRY_BACKOFF", "10ms")
	p, err = LoadBookingPolicy()
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, p.InitialStatus)
	assert.True(t, p.CountPending)
	assert.Equal(t, "TB", p.NumberPrefix)
	assert.Equal(t, 10*time.Millisecond, p.RetryBackoff)

	t.Setenv("BOOKING_INITIAL_STATUS", "completed")
	_, err = LoadBookingPolicy()
	assert.Error(t, err)
}

func TestRateLimitNormalization(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 5*time.Minute, c.TTL)
}

func TestCacheMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	c := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
}

func TestEnvBool(t *testing.T) {
	for v, want := range map[string]bool{"1": true, "YES": true, "off": false, "False": false, "maybe": true} {
		t.Setenv("X_FLAG", v)
		assert.Equal(t, want, envBool("X_FLAG", true), v)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())

	client := NewRedisClient(context.Background(), LoadRedisConfig())
	require.NotNil(t, client)
	defer client.Close()

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, NewRedisClient(context.Background(), RedisConfig{Addr: addr}))
}
