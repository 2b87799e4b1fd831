// Package auth issues and verifies session tokens and tracks revoked ones.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "storyhouse-api"
	Audience = "storyhouse-client"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingKey   = errors.New("jwt secret not configured")
)

// Claims are the JWT claims carried by a session token. AuthTime is the moment
// the user last proved their password; refreshed tokens keep the original value.
type Claims struct {
	jwt.RegisteredClaims
	AuthTime int64 `json:"auth_time"`
}

// Session is the verified identity behind a request.
type Session struct {
	UserID    uint
	TokenID   string
	AuthTime  time.Time
	ExpiresAt time.Time
}

// RecentlyAuthenticated reports whether the password was entered within window of now.
func (s *Session) RecentlyAuthenticated(now time.Time, window time.Duration) bool {
	if s == nil || s.AuthTime.IsZero() {
		return false
	}
	return now.Sub(s.AuthTime) <= window
}

// TokenManager signs and parses HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. now may be nil to use the wall clock.
func NewTokenManager(secret string, ttl time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue creates a token for userID. authTime is when the user last entered their password.
func (m *TokenManager) Issue(userID uint, authTime time.Time) (string, *Session, error) {
	if len(m.secret) == 0 {
		return "", nil, ErrMissingKey
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        newTokenID(now),
		},
		AuthTime: authTime.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.session(userID), nil
}

// Parse verifies signature, issuer, audience and expiry of raw.
func (m *TokenManager) Parse(raw string) (*Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}
	return claims.session(uint(userID)), nil
}

func (c *Claims) session(userID uint) *Session {
	s := &Session{
		UserID:   userID,
		TokenID:  c.ID,
		AuthTime: time.Unix(c.AuthTime, 0),
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

func newTokenID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}
