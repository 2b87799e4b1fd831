package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/arvi1709/AI-library/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Socket timings. Pings go out well inside the pong deadline so an idle but
// healthy peer is never dropped.
const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = pongTimeout * 9 / 10
	maxInboundSize = 16 << 10
	sendBuffer     = 256
)

var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is the side of a hub a client reports back to.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one authenticated socket attached to a hub. Outbound frames go
// through Send; Conn is nil for clients built in tests.
type Client struct {
	Hub     WSHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	TokenID string

	log       *observability.WSLogger
	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		log:    observability.NewWSLogger(hub.Name()),
		closed: make(chan struct{}),
	}
}

// Done is closed once the client has been shut down.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Close asks the writer to send a close frame and release the socket.
// Repeated calls are no-ops.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Run serves the socket until the peer leaves or Close is called. Inbound
// text frames are handed to onMessage, which may be nil for push-only
// sockets. The client is unregistered from its hub before Run returns.
func (c *Client) Run(onMessage func([]byte)) {
	go c.writeLoop()
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxInboundSize)
	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongTimeout)) }
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.LogError(context.Background(), c.UserID, err, "read")
			}
			return
		}
		if onMessage != nil {
			onMessage(message)
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(kind, data)
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.Close()
		_ = c.Conn.Close()
	}()

	for {
		var err error
		select {
		case <-c.closed:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.Send:
			err = c.write(websocket.TextMessage, message)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// TrySend queues message without blocking. When the buffer is full the
// message is dropped and the client is told so it can resynchronise.
func (c *Client) TrySend(message []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
		c.log.LogDrop(context.Background(), c.UserID, "full")
		select {
		case c.Send <- droppedNotice:
		default:
		}
		return false
	}
}
