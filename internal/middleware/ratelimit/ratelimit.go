package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const deniedMessage = "Too many requests from this IP, please try again later."

// DefaultWindow applies when a store is built with a non-positive window.
const DefaultWindow = 15 * time.Minute

func windowOrDefault(w time.Duration) time.Duration {
	if w <= 0 {
		return DefaultWindow
	}
	return w
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisStore is a fixed-window counter shared by every replica.
type RedisStore struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Prefix string
	Now    func() time.Time
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	return &RedisStore{Client: client, Limit: limit, Window: windowOrDefault(window), Prefix: "ratelimit"}
}

func (s *RedisStore) key(identifier string) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	bucket := now().UnixNano() / int64(windowOrDefault(s.Window))
	return fmt.Sprintf("%s:%s:%d", s.Prefix, identifier, bucket)
}

// Allow fails open when Redis is unreachable.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.key(identifier)
	pipe := s.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, windowOrDefault(s.Window))
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("rate_limit_store_error", "error", err)
		return true, nil
	}
	return incr.Val() <= int64(s.Limit), nil
}

// NewMemoryStore approximates limit-per-window with a token bucket per client.
func NewMemoryStore(limit int, window time.Duration) middleware.RateLimiterStore {
	window = windowOrDefault(window)
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: window,
	})
}

func Middleware(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, deniedMessage)
		},
	})
}
