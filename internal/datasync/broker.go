// Package datasync mirrors the shared collections into per-connection
// sessions and pushes a fresh snapshot whenever a collection changes.
package datasync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arvi1709/AI-library/internal/notifications"
)

// Collection names pushed to clients.
const (
	CollectionMe             = "me"
	CollectionUsers          = "users"
	CollectionStories        = "stories"
	CollectionComments       = "comments"
	CollectionLikes          = "likes"
	CollectionReports        = "reports"
	CollectionEmpathyRatings = "empathyRatings"
)

// DefaultCollections are subscribed when a session opens.
var DefaultCollections = []string{
	CollectionMe,
	CollectionUsers,
	CollectionStories,
	CollectionComments,
	CollectionLikes,
	CollectionReports,
	CollectionEmpathyRatings,
}

// Broker fans collection change signals out to in-process listeners. Signals
// coalesce: a listener that is still busy sees at most one pending change.
type Broker struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{listeners: make(map[string]map[chan struct{}]struct{})}
}

// Publish signals every listener of collection. Changes to users also
// refresh each session's own record.
func (b *Broker) Publish(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signalLocked(collection)
	if collection == CollectionUsers {
		b.signalLocked(CollectionMe)
	}
}

func (b *Broker) signalLocked(collection string) {
	for ch := range b.listeners[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listen registers a listener for collection. The returned func removes it.
func (b *Broker) Listen(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	set, ok := b.listeners[collection]
	if !ok {
		set = make(map[chan struct{}]struct{})
		b.listeners[collection] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners[collection], ch)
			if len(b.listeners[collection]) == 0 {
				delete(b.listeners, collection)
			}
			b.mu.Unlock()
		})
	}
}

// Listeners is the number of live listeners for collection.
func (b *Broker) Listeners(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[collection])
}

// Run feeds the broker from the Redis change channel until ctx ends.
func (b *Broker) Run(ctx context.Context, n *notifications.Notifier) error {
	return n.SubscribeCollections(ctx, b.Publish)
}

// ChangePublisher announces collection writes. With Redis every instance
// hears the change through the broker subscription; without it the local
// broker is signalled directly.
type ChangePublisher struct {
	notifier *notifications.Notifier
	broker   *Broker
}

func NewChangePublisher(n *notifications.Notifier, b *Broker) *ChangePublisher {
	return &ChangePublisher{notifier: n, broker: b}
}

// Changed announces that collections were written.
func (p *ChangePublisher) Changed(ctx context.Context, collections ...string) {
	if p == nil {
		return
	}
	if p.notifier.Enabled() {
		err := p.notifier.PublishCollectionChange(ctx, collections...)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "collection change publish failed, signalling locally", "error", err)
	}
	if p.broker != nil {
		for _, c := range collections {
			p.broker.Publish(c)
		}
	}
}
