package middleware

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what Limit does when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRateStore = errors.New("rate limiter has no redis client")

// RateLimiter counts requests per caller in fixed Redis windows keyed
// rl:{resource}:{caller}.
type RateLimiter struct {
	rdb      *redis.Client
	disabled bool
}

// NewRateLimiter returns a limiter for env. Limits are not enforced in the
// test, development and stress environments.
func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	switch env {
	case "", "test", "development", "stress":
		return &RateLimiter{rdb: rdb, disabled: true}
	}
	return &RateLimiter{rdb: rdb}
}

// Allow records one hit for id on resource and reports whether it is within limit.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	allowed, _, err := l.hit(ctx, resource, id, limit, window)
	return allowed, err
}

// hit counts a request and also returns how long until the window resets.
// The first hit of a window sets its expiry in the same round trip.
func (l *RateLimiter) hit(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.disabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errNoRateStore
	}

	key := "rl:" + resource + ":" + id
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return incr.Val() <= int64(limit), ttl.Val(), nil
}

// Limit returns a Fiber middleware enforcing limit requests per window under name.
// It keys by authenticated user when known, otherwise by remote IP.
func (l *RateLimiter) Limit(name string, limit int, window time.Duration, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, reset, err := l.hit(c.UserContext(), name, id, limit, window)
		switch {
		case err != nil && policy == FailClosed:
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
				"resource", name, "error", err)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewUnavailableError("Please try again shortly.", nil))
		case err != nil:
			return c.Next()
		case !allowed:
			if reset > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			}
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
		}
		return c.Next()
	}
}
