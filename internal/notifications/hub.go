package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/arvi1709/AI-library/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Connection caps, per user and per hub.
const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Connection limit errors returned by Register.
var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserFull    = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("hub is shutting down")
)

// Hub tracks the open sockets of each user and fans messages out to them.
type Hub struct {
	name       string
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
	log        *observability.WSLogger
}

// NewHub creates a new Hub instance for managing notifications.
func NewHub(name string) *Hub {
	return &Hub{
		name:  name,
		conns: make(map[uint]map[*Client]struct{}),
		log:   observability.NewWSLogger(name),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return h.name }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, tokenID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	client.TokenID = tokenID
	m[client] = struct{}{}
	h.totalConns++
	h.log.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client from the hub. Unknown clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client, "closed")
}

func (h *Hub) removeLocked(client *Client, reason string) bool {
	m, ok := h.conns[client.UserID]
	if !ok {
		return false
	}
	if _, exists := m[client]; !exists {
		return false
	}
	delete(m, client)
	h.totalConns--
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.log.LogDisconnect(context.Background(), client.UserID, reason)
	return true
}

// Broadcast queues message on every connection of userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.conns[userID] {
		c.TrySend(data)
	}
}

// ConnectionCount is the number of live connections for userID.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// evict removes and closes every client match selects. Sockets are closed
// after the lock is released.
func (h *Hub) evict(match func(*Client) bool, reason string) int {
	var victims []*Client
	h.mu.Lock()
	for _, clients := range h.conns {
		for c := range clients {
			if match(c) {
				victims = append(victims, c)
			}
		}
	}
	for _, c := range victims {
		h.removeLocked(c, reason)
	}
	h.mu.Unlock()

	for _, c := range victims {
		c.Close()
	}
	return len(victims)
}

// CloseToken disconnects every connection opened with tokenID and reports how many there were.
func (h *Hub) CloseToken(tokenID string) int {
	if tokenID == "" {
		return 0
	}
	return h.evict(func(c *Client) bool { return c.TokenID == tokenID }, "revoked")
}

// CloseUser disconnects every connection belonging to userID.
func (h *Hub) CloseUser(userID uint) {
	h.evict(func(c *Client) bool { return c.UserID == userID }, "account_closed")
}

// StartWiring delivers the Notifier's per-user Redis channels to this hub's sockets.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := ParseUserChannel(channel)
		if !ok {
			slog.Warn("invalid notification channel", "channel", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every connection and refuses new ones.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	already := h.closed
	h.closed = true
	h.mu.Unlock()
	if !already {
		h.evict(func(*Client) bool { return true }, "shutdown")
	}
	return nil
}
