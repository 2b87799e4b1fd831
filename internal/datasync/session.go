package datasync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arvi1709/AI-library/internal/observability"
)

var (
	ErrSessionClosed     = errors.New("sync session closed")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Frame is the message pushed to the client for every collection snapshot.
type Frame struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	Payload    json.RawMessage `json:"payload"`
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Session mirrors the collections one authenticated connection is subscribed
// to. It holds at most one subscription per collection.
type Session struct {
	UserID  uint
	TokenID string

	send    func([]byte) bool
	loaders Loaders
	broker  *Broker

	// ops serializes Subscribe, Unsubscribe and Close.
	ops sync.Mutex

	mu       sync.Mutex
	subs     map[string]*subscription
	payloads map[string]json.RawMessage
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession builds a session that delivers frames through send. send must
// not block; a false return means the frame was dropped.
func NewSession(parent context.Context, userID uint, tokenID string, broker *Broker, loaders Loaders, send func([]byte) bool) *Session {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Session{
		UserID:   userID,
		TokenID:  tokenID,
		send:     send,
		loaders:  loaders,
		broker:   broker,
		subs:     make(map[string]*subscription),
		payloads: make(map[string]json.RawMessage),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Open subscribes to every default collection.
func (s *Session) Open() error {
	for _, c := range DefaultCollections {
		if err := s.Subscribe(c); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe starts mirroring collection. An existing subscription for the
// same collection is released before the new one starts.
func (s *Session) Subscribe(collection string) error {
	loader, ok := s.loaders[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	s.ops.Lock()
	defer s.ops.Unlock()

	if s.isClosed() {
		return ErrSessionClosed
	}
	s.release(collection)

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	changes, stop := s.broker.Listen(collection)

	s.mu.Lock()
	s.subs[collection] = sub
	s.mu.Unlock()

	observability.SyncSubscriptions.WithLabelValues(collection).Inc()
	go s.watch(ctx, sub, collection, loader, changes, stop)
	return nil
}

// Unsubscribe releases the subscription for collection, if any.
func (s *Session) Unsubscribe(collection string) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.release(collection)
}

// release cancels one subscription and waits for its goroutine. Callers hold ops.
func (s *Session) release(collection string) {
	s.mu.Lock()
	sub, ok := s.subs[collection]
	delete(s.subs, collection)
	s.mu.Unlock()
	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
}

// Close cancels every subscription and returns once all of them have exited.
func (s *Session) Close() {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	s.cancel()
	for _, sub := range subs {
		<-sub.done
	}
	close(s.done)
}

// Done is closed after Close has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscriptions lists the live collections in name order.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for c := range s.subs {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the last payload pushed for collection.
func (s *Session) Snapshot(collection string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payloads[collection]
	return p, ok
}

func (s *Session) watch(ctx context.Context, sub *subscription, collection string, loader Loader, changes <-chan struct{}, stop func()) {
	defer close(sub.done)
	defer observability.SyncSubscriptions.WithLabelValues(collection).Dec()
	defer stop()

	s.refresh(ctx, collection, loader)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			s.refresh(ctx, collection, loader)
		}
	}
}

// refresh reloads collection and pushes it when it differs from the last
// snapshot. Load failures keep the previous snapshot.
func (s *Session) refresh(ctx context.Context, collection string, loader Loader) {
	value, err := loader(ctx, s.UserID)
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "sync snapshot load failed",
				"collection", collection, "user_id", s.UserID, "error", err)
		}
		return
	}

	payload, err := encodePayload(collection, value)
	if err != nil {
		slog.WarnContext(ctx, "sync snapshot encode failed", "collection", collection, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if prev, ok := s.payloads[collection]; ok && bytes.Equal(prev, payload) {
		return
	}

	frame, err := json.Marshal(Frame{Type: "snapshot", Collection: collection, Payload: payload})
	if err != nil {
		return
	}
	// A dropped frame leaves the previous payload so the next reload resends.
	if !s.send(frame) {
		slog.WarnContext(ctx, "sync frame dropped", "collection", collection, "user_id", s.UserID)
		return
	}
	s.payloads[collection] = payload
}

func encodePayload(collection string, value interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if collection != CollectionMe && bytes.Equal(b, []byte("null")) {
		return json.RawMessage("[]"), nil
	}
	return b, nil
}
