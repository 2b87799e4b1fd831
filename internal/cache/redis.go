// Package cache provides Redis connection setup and cache-aside helpers.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// errorCounter feeds RedisErrorRate. A cache miss (redis.Nil) is not an error.
type errorCounter struct{}

func countFailure(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(op).Inc()
	}
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

// ParseAddr accepts either host:port or a redis:// / rediss:// URL.
func ParseAddr(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// Connect dials Redis at addr and pings it. It returns nil when addr is
// empty, malformed or unreachable; callers then run without the shared
// cache, cross-instance fan-out and Redis-backed rate limits.
func Connect(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	opts, err := ParseAddr(addr)
	if err != nil {
		slog.Warn("invalid REDIS_URL, continuing without redis", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, continuing without redis", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	slog.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
	return client
}
