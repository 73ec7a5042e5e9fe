package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const rateLimitKeyPrefix = "iban-manager:ratelimit"

// fixedWindowScript counts a hit in the current window and returns
// {count, ttl_ms}. The first hit of a window sets its expiry.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// Limit throttles requests per client IP with the configured budget.
// Counters live in Redis when a client is configured, so every instance
// shares them, and in process memory otherwise.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	cfg := r.server.Config.RateLimit
	if !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	var store middleware.RateLimiterStore
	if r.server.Redis != nil {
		store = &redisStore{
			client: r.server.Redis,
			limit:  cfg.Requests,
			window: cfg.Window,
			log:    r.server.Logger,
		}
	} else {
		store = middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
			Burst:     cfg.Requests,
			ExpiresIn: 3 * cfg.Window,
		})
	}

	retryAfter := strconv.Itoa(int(math.Ceil(cfg.Window.Seconds())))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewBadRequestError("Could not identify client", false, nil, nil).WithCause(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c.Path())
			GetLogger(c).Warn().Str("client", identifier).Msg("rate limit exceeded")

			c.Response().Header().Set("Retry-After", retryAfter)
			return errs.NewTooManyRequestsError("Too many requests, please slow down")
		},
	})
}

// RecordRateLimitHit records a New Relic custom event for a throttled request.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}

// redisStore is a fixed window limiter shared through Redis.
type redisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *zerolog.Logger
}

// redisTimeout bounds one limiter round trip.
const redisTimeout = 500 * time.Millisecond

// Allow fails open when Redis is unreachable.
func (s *redisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	count, err := s.consume(ctx, identifier)
	if err != nil {
		s.log.Warn().Err(err).Msg("redis rate limiter unavailable, allowing request")
		return true, nil
	}

	return count <= int64(s.limit), nil
}

func (s *redisStore) consume(ctx context.Context, identifier string) (int64, error) {
	windowMs := s.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s", rateLimitKeyPrefix, identifier)
	raw, err := fixedWindowScript.Run(ctx, s.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}

	count, ok := values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	return count, nil
}

var _ middleware.RateLimiterStore = (*redisStore)(nil)
