package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/datasync"
	"github.com/arvi1709/AI-library/internal/middleware"
	"github.com/arvi1709/AI-library/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// syncCommand is a client request on /ws/sync.
type syncCommand struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
}

type syncError struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
	Message    string `json:"message"`
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func socketSession(conn *websocket.Conn) (*auth.Session, bool) {
	session, ok := conn.Locals(middleware.LocalSession).(*auth.Session)
	return session, ok && session != nil
}

func rejectSocket(conn *websocket.Conn, reason string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"`+reason+`"}`))
	_ = conn.Close()
}

// NotificationSocket streams per-user events such as new notifications.
// The socket is push-only; anything the client sends is ignored.
func (s *Server) NotificationSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		session, ok := socketSession(conn)
		if !ok {
			rejectSocket(conn, "unauthorized")
			return
		}

		client, err := s.hub.Register(session.UserID, session.TokenID, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected", "user_id", session.UserID, "error", err)
			rejectSocket(conn, err.Error())
			return
		}

		client.Run(nil)
	})
}

// SyncSocket mirrors collections to the client. The connection starts
// subscribed to the default collections and accepts subscribe and
// unsubscribe commands afterwards.
func (s *Server) SyncSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		session, ok := socketSession(conn)
		if !ok {
			rejectSocket(conn, "unauthorized")
			return
		}

		client, err := s.syncHub.Register(session.UserID, session.TokenID, conn)
		if err != nil {
			middleware.Logger.Warn("sync socket rejected", "user_id", session.UserID, "error", err)
			rejectSocket(conn, err.Error())
			return
		}

		ctx := s.shutdownCtx
		if ctx == nil {
			ctx = context.Background()
		}
		syncSession, err := s.syncSessions.Open(ctx, session.UserID, session.TokenID, client.TrySend)
		if err != nil {
			middleware.Logger.Error("open sync session", "user_id", session.UserID, "error", err)
			s.syncHub.UnregisterClient(client)
			rejectSocket(conn, "sync unavailable")
			return
		}
		defer s.syncSessions.Remove(syncSession)

		go func() {
			select {
			case <-syncSession.Done():
				client.Close()
			case <-client.Done():
			}
		}()

		client.Run(func(message []byte) {
			handleSyncCommand(client, syncSession, message)
		})
	})
}

func handleSyncCommand(c *notifications.Client, session *datasync.Session, message []byte) {
	var cmd syncCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		sendSyncError(c, "", "invalid message")
		return
	}

	switch cmd.Type {
	case "subscribe":
		if err := session.Subscribe(cmd.Collection); err != nil {
			if errors.Is(err, datasync.ErrUnknownCollection) {
				sendSyncError(c, cmd.Collection, "unknown collection")
				return
			}
			if !errors.Is(err, datasync.ErrSessionClosed) {
				middleware.Logger.Error("sync subscribe", "user_id", c.UserID, "collection", cmd.Collection, "error", err)
			}
		}
	case "unsubscribe":
		session.Unsubscribe(cmd.Collection)
	default:
		sendSyncError(c, cmd.Collection, "unknown command")
	}
}

func sendSyncError(c *notifications.Client, collection, msg string) {
	b, err := json.Marshal(syncError{Type: "error", Collection: collection, Message: msg})
	if err != nil {
		return
	}
	c.TrySend(b)
}
