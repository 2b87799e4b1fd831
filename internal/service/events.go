package service

import (
	"context"
	"time"
)

// EventPublisher pushes a realtime event to one user's open sockets.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload interface{}) error
}

// ChangeNotifier announces that collections were written so sync sessions reload them.
type ChangeNotifier interface {
	Changed(ctx context.Context, collections ...string)
}

// Cache is the cache-aside store used for read-heavy projections.
type Cache interface {
	Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error
	Invalidate(ctx context.Context, keys ...string)
}

// Mailer sends the transactional emails.
type Mailer interface {
	StoryReported(ctx context.Context, to, authorName, title string) error
	AccountDeleted(ctx context.Context, to string) error
}

// Realtime event types.
const (
	EventNotification      = "notification"
	EventNotificationsRead = "notifications_read"
)

// Collection names announced through ChangeNotifier.
const (
	CollectionUsers          = "users"
	CollectionStories        = "stories"
	CollectionComments       = "comments"
	CollectionLikes          = "likes"
	CollectionReports        = "reports"
	CollectionEmpathyRatings = "empathyRatings"
)

type noopChanges struct{}

func (noopChanges) Changed(context.Context, ...string) {}

type noopCache struct{}

func (noopCache) Aside(_ context.Context, _ string, _ any, _ time.Duration, fetch func() error) error {
	return fetch()
}

func (noopCache) Invalidate(context.Context, ...string) {}

func changesOrNoop(c ChangeNotifier) ChangeNotifier {
	if c == nil {
		return noopChanges{}
	}
	return c
}

func cacheOrNoop(c Cache) Cache {
	if c == nil {
		return noopCache{}
	}
	return c
}
