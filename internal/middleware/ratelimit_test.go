package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tests := []struct {
		name     string
		env      string
		rdb      *redis.Client
		hits     int
		wantLast bool
		wantErr  bool
	}{
		{name: "test environment bypass", env: "test", hits: 5, wantLast: true},
		{name: "development environment bypass", env: "development", hits: 5, wantLast: true},
		{name: "production within limit", env: "production", rdb: rdb, hits: 2, wantLast: true},
		{name: "production over limit", env: "production", rdb: rdb, hits: 3, wantLast: false},
		{name: "production without redis", env: "production", hits: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.FlushAll()
			l := NewRateLimiter(tt.rdb, tt.env)

			var allowed bool
			var err error
			for i := 0; i < tt.hits; i++ {
				allowed, err = l.Allow(context.Background(), "comments", "user:1", 2, time.Minute)
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast, allowed)
		})
	}
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRateLimiter(rdb, "production")
	ctx := context.Background()

	ok, err := l.Allow(ctx, "login", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "login", "ip:1", 1, time.Minute)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = l.Allow(ctx, "login", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Middleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	app := fiber.New()
	app.Post("/reports", NewRateLimiter(rdb, "production").Limit("reports", 1, time.Minute, FailOpen),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeRateLimited, body.Code)

	// The window's expiry is set once, not pushed back by later hits.
	mr.FastForward(61 * time.Second)
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRateLimiter_FailClosed(t *testing.T) {
	app := fiber.New()
	app.Get("/x", NewRateLimiter(nil, "production").Limit("x", 1, time.Minute, FailClosed),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
