// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	userChannelGlob   = userChannelPrefix + "*"

	// CollectionsChannel carries one message per changed collection.
	CollectionsChannel = "sync:collections"
)

// Event is the envelope written to WebSocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// CollectionChange announces that a synced collection was written.
type CollectionChange struct {
	Collection string `json:"collection"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the notifier has a Redis connection.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishEvent wraps payload in an Event and sends it to the user's channel.
func (n *Notifier) PublishEvent(ctx context.Context, userID uint, eventType string, payload interface{}) error {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return n.PublishUser(ctx, userID, string(b))
}

// PublishCollectionChange announces writes to the named collections.
func (n *Notifier) PublishCollectionChange(ctx context.Context, collections ...string) error {
	if !n.Enabled() {
		return nil
	}
	for _, c := range collections {
		b, err := json.Marshal(CollectionChange{Collection: c})
		if err != nil {
			return fmt.Errorf("marshal collection change: %w", err)
		}
		if err := n.rdb.Publish(ctx, CollectionsChannel, string(b)).Err(); err != nil {
			return fmt.Errorf("publish %s change: %w", c, err)
		}
	}
	return nil
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelGlob)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelGlob, err)
	}
	go pump(ctx, sub, "notifications", func(msg *redis.Message) {
		onMessage(msg.Channel, msg.Payload)
	})
	return nil
}

// SubscribeCollections calls onChange with the name of every collection
// announced on CollectionsChannel until ctx ends.
func (n *Notifier) SubscribeCollections(ctx context.Context, onChange func(collection string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, CollectionsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", CollectionsChannel, err)
	}
	go pump(ctx, sub, "collections", func(msg *redis.Message) {
		var change CollectionChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil || change.Collection == "" {
			slog.Warn("ignoring malformed collection change", "payload", msg.Payload)
			return
		}
		onChange(change.Collection)
	})
	return nil
}

func pump(ctx context.Context, sub *redis.PubSub, name string, handle func(*redis.Message)) {
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("panic in subscriber", "subscriber", name, "panic", r, "stack", string(debug.Stack()))
					}
				}()
				handle(msg)
			}()
		}
	}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
