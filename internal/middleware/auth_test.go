package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arvi1709/AI-library/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return r[id], nil
}

type ticketStub map[string]*auth.Session

func (t ticketStub) Redeem(_ context.Context, ticket string) (*auth.Session, error) {
	s, ok := t[ticket]
	if !ok {
		return nil, auth.ErrTicketInvalid
	}
	delete(t, ticket)
	return s, nil
}

func TestAuthRequired(t *testing.T) {
	secret := "test-secret-key-12345678901234567890123456789012"
	tokens := auth.NewTokenManager(secret, time.Hour, nil)

	valid, _, err := tokens.Issue(123, time.Now())
	require.NoError(t, err)
	revokedToken, revokedSession, err := tokens.Issue(124, time.Now())
	require.NoError(t, err)
	expired, _, err := auth.NewTokenManager(secret, -time.Minute, nil).Issue(123, time.Now())
	require.NoError(t, err)

	app := fiber.New()
	cfg := AuthConfig{
		Tokens:      tokens,
		Revocations: revokedSet{revokedSession.TokenID: true},
		Tickets:     ticketStub{"good": {UserID: 9, TokenID: "t9"}},
	}
	handler := func(c *fiber.Ctx) error {
		uid, _ := UserID(c)
		return c.JSON(fiber.Map{"userID": uid})
	}
	app.Get("/test", AuthRequired(cfg), handler)
	app.Get("/ws/sync", AuthRequired(cfg), handler)

	tests := []struct {
		name           string
		path           string
		authHeader     string
		expectedStatus int
	}{
		{"Happy Path", "/test", "Bearer " + valid, http.StatusOK},
		{"Missing Header", "/test", "", http.StatusUnauthorized},
		{"Invalid Format", "/test", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"Malformed Token", "/test", "Bearer malformed.token.here", http.StatusUnauthorized},
		{"Expired Token", "/test", "Bearer " + expired, http.StatusUnauthorized},
		{"Revoked Token", "/test", "Bearer " + revokedToken, http.StatusUnauthorized},
		{"WebSocket ticket", "/ws/sync?ticket=good", "", http.StatusOK},
		{"WebSocket ticket reused", "/ws/sync?ticket=good", "", http.StatusUnauthorized},
		{"WebSocket bearer is not enough", "/ws/sync", "Bearer " + valid, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret-key-12345678901234567890123456789012", time.Hour, nil)
	valid, _, err := tokens.Issue(5, time.Now())
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/maybe", OptionalAuth(AuthConfig{Tokens: tokens}), func(c *fiber.Ctx) error {
		if _, ok := UserID(c); ok {
			return c.SendString("member")
		}
		return c.SendString("guest")
	})

	for header, want := range map[string]string{
		"":                "guest",
		"Bearer garbage":  "guest",
		"Bearer " + valid: "member",
	} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body := make([]byte, 16)
		n, _ := resp.Body.Read(body)
		assert.Equal(t, want, string(body[:n]))
	}
}
