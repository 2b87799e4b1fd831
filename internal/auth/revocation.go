package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers token ids that must no longer be accepted.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocations keeps revoked token ids in Redis until the token would have expired anyway.
type RedisRevocations struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisRevocations returns a store backed by rdb. A nil client makes every call a no-op.
func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb, now: time.Now}
}

func revocationKey(tokenID string) string {
	return "blacklist:" + tokenID
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if r.rdb == nil || tokenID == "" {
		return nil
	}
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revocationKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.rdb == nil || tokenID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
