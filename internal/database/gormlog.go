package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// slogGorm sends gorm's statement log to slog. Statements are only logged
// when they fail or run longer than slow, unless the level is raised to Info.
type slogGorm struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger returns a gorm logger at Warn level. A non-positive slow
// threshold falls back to 200ms.
func NewGormLogger(l *slog.Logger, slow time.Duration) logger.Interface {
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &slogGorm{log: l.With("component", "gorm"), level: logger.Warn, slow: slow}
}

func (g *slogGorm) LogMode(level logger.LogLevel) logger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *slogGorm) printf(ctx context.Context, threshold logger.LogLevel, lvl slog.Level, msg string, args []interface{}) {
	if g.level >= threshold {
		g.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

func (g *slogGorm) Info(ctx context.Context, msg string, args ...interface{}) {
	g.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (g *slogGorm) Warn(ctx context.Context, msg string, args ...interface{}) {
	g.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (g *slogGorm) Error(ctx context.Context, msg string, args ...interface{}) {
	g.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

func (g *slogGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		lvl, msg = slog.LevelError, "statement failed"
	case elapsed > g.slow && g.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow statement"
	case g.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "statement"
	default:
		return
	}

	sql, rows := fc()
	attrs := []any{"sql", sql, "rows", rows, "elapsed", elapsed}
	if err != nil && lvl == slog.LevelError {
		attrs = append(attrs, "error", err)
	}
	g.log.Log(ctx, lvl, msg, attrs...)
}
