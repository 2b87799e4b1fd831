package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TicketTTL is how long a WebSocket ticket may wait before it is redeemed.
const TicketTTL = 60 * time.Second

// ErrTicketInvalid is returned for unknown, expired or already redeemed tickets.
var ErrTicketInvalid = errors.New("invalid or expired websocket ticket")

// Tickets hands out single-use WebSocket tickets so session tokens never
// travel in a query string.
type Tickets struct {
	rdb *redis.Client
}

func NewTickets(rdb *redis.Client) *Tickets {
	return &Tickets{rdb: rdb}
}

func ticketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// Issue stores a ticket bound to the session's user and token id.
func (t *Tickets) Issue(ctx context.Context, s *Session) (string, error) {
	if t.rdb == nil {
		return "", errors.New("websocket tickets require redis")
	}
	ticket := uuid.NewString()
	value := fmt.Sprintf("%d|%s|%d", s.UserID, s.TokenID, s.ExpiresAt.Unix())
	if err := t.rdb.Set(ctx, ticketKey(ticket), value, TicketTTL).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return ticket, nil
}

// Redeem consumes the ticket and returns the session it was issued for.
func (t *Tickets) Redeem(ctx context.Context, ticket string) (*Session, error) {
	if t.rdb == nil || ticket == "" {
		return nil, ErrTicketInvalid
	}
	value, err := t.rdb.GetDel(ctx, ticketKey(ticket)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTicketInvalid
		}
		return nil, fmt.Errorf("redeem ticket: %w", err)
	}

	parts := strings.SplitN(value, "|", 3)
	if len(parts) != 3 {
		return nil, ErrTicketInvalid
	}
	userID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return nil, ErrTicketInvalid
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrTicketInvalid
	}
	return &Session{UserID: uint(userID), TokenID: parts[1], ExpiresAt: time.Unix(exp, 0)}, nil
}
