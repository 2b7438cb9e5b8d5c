package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(e *echo.Echo, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func newEcho(store middleware.RateLimiterStore) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(store))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func TestMemoryStore_DeniesAfterBurst(t *testing.T) {
	e := newEcho(NewMemoryStore(3, time.Hour))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2"))
}

func TestRedisStore_FixedWindow(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR is required for redis tests")
	}
	rdb, err := NewRedisClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewRedisStore(rdb, 2, time.Minute)
	store.Prefix = "ratelimit-test-" + uuid.NewString()
	store.Now = func() time.Time { return now }

	e := newEcho(store)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1"))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1"))
}

func TestMemoryStore_ZeroWindowStillLimits(t *testing.T) {
	e := newEcho(NewMemoryStore(2, 0))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.3"))
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.3"))
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.3"))
}

func TestRedisStore_ZeroWindowFallsBackToDefault(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	store := NewRedisStore(rdb, 100, 0)
	assert.Equal(t, DefaultWindow, store.Window)

	store.Window = 0
	assert.NotPanics(t, func() {
		allowed, err := store.Allow("1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
