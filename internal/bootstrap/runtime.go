// Package bootstrap wires the process-wide connections shared by the server
// and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/database"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const schemaTimeout = 2 * time.Minute

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations or AutoMigrate according to DB_SCHEMA_MODE.
	ApplySchema bool
}

// InitRuntime connects to the database and Redis. The Redis client is nil
// when REDIS_URL is unset or unreachable; callers fall back to in-process
// delivery in that case.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return db, cache.Connect(cfg.RedisURL), nil
}
