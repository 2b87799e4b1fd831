package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arvi1709/AI-library/internal/notifications"
)

// realtimePublisher delivers per-user events. With Redis every instance
// receives the event through the pattern subscriber; without it the event
// only reaches sockets held by this process.
type realtimePublisher struct {
	notifier *notifications.Notifier
	hub      *notifications.Hub
}

func (p *realtimePublisher) PublishEvent(ctx context.Context, userID uint, eventType string, payload interface{}) error {
	if p.notifier.Enabled() {
		return p.notifier.PublishEvent(ctx, userID, eventType, payload)
	}
	if p.hub == nil {
		return nil
	}
	b, err := json.Marshal(notifications.Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	p.hub.Broadcast(userID, string(b))
	return nil
}
