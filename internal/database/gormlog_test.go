package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)), 50*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String(), "fast statements are quiet at warn level")

	l.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow statement")
	buf.Reset()

	l.Trace(ctx, time.Now(), stmt, errors.New("relation missing"))
	assert.Contains(t, buf.String(), "statement failed")
	assert.Contains(t, buf.String(), "relation missing")
	buf.Reset()

	l.LogMode(logger.Silent).Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	assert.Empty(t, buf.String())

	l.LogMode(logger.Info).Info(ctx, "opened %s", "pool")
	assert.Contains(t, buf.String(), "opened pool")
}
