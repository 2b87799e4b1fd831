// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"strings"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUserID  = "userID"
	LocalSession = "session"
)

// TokenParser verifies a raw session token.
type TokenParser interface {
	Parse(raw string) (*auth.Session, error)
}

// TicketRedeemer exchanges a single-use WebSocket ticket for a session.
type TicketRedeemer interface {
	Redeem(ctx context.Context, ticket string) (*auth.Session, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig wires the collaborators of AuthRequired. Tickets and Revocations may be nil.
type AuthConfig struct {
	Tokens      TokenParser
	Tickets     TicketRedeemer
	Revocations RevocationChecker
}

// AuthRequired enforces a valid bearer token, or a WebSocket ticket on /ws routes,
// and stores the session in fiber locals and the user context.
func AuthRequired(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := resolveSession(c, cfg)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		if cfg.Revocations != nil && session.TokenID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.UserContext(), session.TokenID)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "revocation check failed", "error", err)
			}
			if revoked {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		setSession(c, session)
		return c.Next()
	}
}

// OptionalAuth attaches a session when a valid bearer token is present but never rejects.
func OptionalAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" || cfg.Tokens == nil {
			return c.Next()
		}
		session, err := cfg.Tokens.Parse(raw)
		if err != nil {
			return c.Next()
		}
		if cfg.Revocations != nil {
			if revoked, _ := cfg.Revocations.IsRevoked(c.UserContext(), session.TokenID); revoked {
				return c.Next()
			}
		}
		setSession(c, session)
		return c.Next()
	}
}

func resolveSession(c *fiber.Ctx, cfg AuthConfig) (*auth.Session, error) {
	if strings.HasPrefix(c.Path(), "/ws") {
		ticket := c.Query("ticket")
		if ticket == "" || cfg.Tickets == nil {
			return nil, models.NewUnauthorizedError("WebSocket ticket required")
		}
		session, err := cfg.Tickets.Redeem(c.UserContext(), ticket)
		if err != nil {
			return nil, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
		}
		return session, nil
	}

	raw := bearerToken(c)
	if raw == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	session, err := cfg.Tokens.Parse(raw)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	return session, nil
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

func setSession(c *fiber.Ctx, session *auth.Session) {
	c.Locals(LocalUserID, session.UserID)
	c.Locals(LocalSession, session)
	ctx := context.WithValue(c.UserContext(), UserIDKey, session.UserID)
	c.SetUserContext(ctx)
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// SessionFrom returns the authenticated session, if any.
func SessionFrom(c *fiber.Ctx) (*auth.Session, bool) {
	s, ok := c.Locals(LocalSession).(*auth.Session)
	return s, ok && s != nil
}
