package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvi1709/AI-library/internal/notifications"
)

type frameSink struct {
	frames chan Frame
}

func newFrameSink() *frameSink {
	return &frameSink{frames: make(chan Frame, 64)}
}

func (f *frameSink) send(b []byte) bool {
	var fr Frame
	if err := json.Unmarshal(b, &fr); err != nil {
		return false
	}
	select {
	case f.frames <- fr:
		return true
	default:
		return false
	}
}

func (f *frameSink) next(t *testing.T) Frame {
	t.Helper()
	select {
	case fr := <-f.frames:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func (f *frameSink) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case fr := <-f.frames:
		t.Fatalf("unexpected frame for %s: %s", fr.Collection, fr.Payload)
	case <-time.After(wait):
	}
}

type storyList struct {
	mu      sync.Mutex
	titles  []string
	fail    bool
	loads   int32
	blocked chan struct{}
}

func (s *storyList) load(ctx context.Context, _ uint) (interface{}, error) {
	atomic.AddInt32(&s.loads, 1)
	if s.blocked != nil {
		select {
		case <-s.blocked:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("store unavailable")
	}
	out := make([]map[string]string, 0, len(s.titles))
	for _, t := range s.titles {
		out = append(out, map[string]string{"title": t})
	}
	return out, nil
}

func (s *storyList) set(titles ...string) {
	s.mu.Lock()
	s.titles = titles
	s.mu.Unlock()
}

func (s *storyList) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func TestSession_PushesInitialSnapshotAndChanges(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{titles: []string{"First"}}
	sink := newFrameSink()

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{CollectionStories: stories.load}, sink.send)
	defer s.Close()
	require.NoError(t, s.Subscribe(CollectionStories))

	fr := sink.next(t)
	assert.Equal(t, "snapshot", fr.Type)
	assert.Equal(t, CollectionStories, fr.Collection)
	assert.JSONEq(t, `[{"title":"First"}]`, string(fr.Payload))

	stories.set("Second", "First")
	broker.Publish(CollectionStories)
	fr = sink.next(t)
	assert.JSONEq(t, `[{"title":"Second"},{"title":"First"}]`, string(fr.Payload))

	snap, ok := s.Snapshot(CollectionStories)
	require.True(t, ok)
	assert.JSONEq(t, string(fr.Payload), string(snap))
}

func TestSession_SkipsUnchangedSnapshots(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{titles: []string{"Same"}}
	sink := newFrameSink()

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{CollectionStories: stories.load}, sink.send)
	defer s.Close()
	require.NoError(t, s.Subscribe(CollectionStories))
	sink.next(t)

	broker.Publish(CollectionStories)
	sink.none(t, 100*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&stories.loads), int32(2))
}

func TestSession_DroppedFrameIsResent(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{titles: []string{"Only"}}
	sink := newFrameSink()
	var full atomic.Bool
	full.Store(true)
	send := func(b []byte) bool {
		if full.Load() {
			return false
		}
		return sink.send(b)
	}

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{CollectionStories: stories.load}, send)
	defer s.Close()
	require.NoError(t, s.Subscribe(CollectionStories))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&stories.loads) >= 1 }, 2*time.Second, 10*time.Millisecond)
	_, ok := s.Snapshot(CollectionStories)
	assert.False(t, ok, "an undelivered snapshot is not recorded")

	full.Store(false)
	broker.Publish(CollectionStories)
	fr := sink.next(t)
	assert.JSONEq(t, `[{"title":"Only"}]`, string(fr.Payload))
}

func TestSession_LoaderErrorKeepsPreviousSnapshot(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{titles: []string{"Kept"}}
	sink := newFrameSink()

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{CollectionStories: stories.load}, sink.send)
	defer s.Close()
	require.NoError(t, s.Subscribe(CollectionStories))
	sink.next(t)

	stories.setFail(true)
	broker.Publish(CollectionStories)
	sink.none(t, 100*time.Millisecond)

	snap, ok := s.Snapshot(CollectionStories)
	require.True(t, ok)
	assert.JSONEq(t, `[{"title":"Kept"}]`, string(snap))

	stories.setFail(false)
	stories.set("Recovered")
	broker.Publish(CollectionStories)
	assert.JSONEq(t, `[{"title":"Recovered"}]`, string(sink.next(t).Payload))
}

func TestSession_ResubscribeReplacesSubscription(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{titles: []string{"A"}}
	sink := newFrameSink()

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{CollectionStories: stories.load}, sink.send)
	defer s.Close()

	require.NoError(t, s.Subscribe(CollectionStories))
	sink.next(t)
	require.NoError(t, s.Subscribe(CollectionStories))

	assert.Equal(t, []string{CollectionStories}, s.Subscriptions())
	assert.Equal(t, 1, broker.Listeners(CollectionStories))
}

func TestSession_CloseWaitsForSubscriptions(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{blocked: make(chan struct{})}
	sink := newFrameSink()

	s := NewSession(context.Background(), 1, "tok", broker, Loaders{
		CollectionStories:  stories.load,
		CollectionComments: stories.load,
	}, sink.send)
	require.NoError(t, s.Subscribe(CollectionStories))
	require.NoError(t, s.Subscribe(CollectionComments))

	s.Close()
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Close returned")
	}
	assert.Empty(t, s.Subscriptions())
	assert.Zero(t, broker.Listeners(CollectionStories))
	assert.Zero(t, broker.Listeners(CollectionComments))

	assert.ErrorIs(t, s.Subscribe(CollectionStories), ErrSessionClosed)
	s.Close()
}

func TestSession_UnknownCollection(t *testing.T) {
	s := NewSession(context.Background(), 1, "tok", NewBroker(), Loaders{}, func([]byte) bool { return true })
	defer s.Close()
	assert.ErrorIs(t, s.Subscribe("widgets"), ErrUnknownCollection)
}

func TestSession_UsersChangeRefreshesMe(t *testing.T) {
	broker := NewBroker()
	var name atomic.Value
	name.Store("Ada")
	me := func(context.Context, uint) (interface{}, error) {
		return map[string]string{"name": name.Load().(string)}, nil
	}
	sink := newFrameSink()

	s := NewSession(context.Background(), 7, "tok", broker, Loaders{CollectionMe: me}, sink.send)
	defer s.Close()
	require.NoError(t, s.Subscribe(CollectionMe))
	assert.JSONEq(t, `{"name":"Ada"}`, string(sink.next(t).Payload))

	name.Store("Grace")
	broker.Publish(CollectionUsers)
	assert.JSONEq(t, `{"name":"Grace"}`, string(sink.next(t).Payload))
}

func TestEncodePayload_NilListIsEmptyArray(t *testing.T) {
	var none []string
	p, err := encodePayload(CollectionStories, none)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(p))

	p, err = encodePayload(CollectionMe, nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(p))
}

func TestRegistry_CloseByTokenAndUser(t *testing.T) {
	broker := NewBroker()
	stories := &storyList{}
	loaders := Loaders{}
	for _, c := range DefaultCollections {
		loaders[c] = stories.load
	}
	r := NewRegistry(broker, loaders)
	ctx := context.Background()
	noop := func([]byte) bool { return true }

	a, err := r.Open(ctx, 1, "tok-a", noop)
	require.NoError(t, err)
	_, err = r.Open(ctx, 1, "tok-b", noop)
	require.NoError(t, err)
	_, err = r.Open(ctx, 2, "tok-c", noop)
	require.NoError(t, err)

	assert.ElementsMatch(t, DefaultCollections, a.Subscriptions())
	assert.Equal(t, 3, r.Count())

	assert.Equal(t, 1, r.CloseToken("tok-a"))
	<-a.Done()
	assert.Equal(t, 1, r.CloseUser(1))
	assert.Equal(t, 1, r.Count())

	r.CloseAll()
	assert.Zero(t, r.Count())
	assert.Zero(t, broker.Listeners(CollectionStories))
}

func TestChangePublisher_LocalAndRedis(t *testing.T) {
	t.Run("without redis signals the local broker", func(t *testing.T) {
		broker := NewBroker()
		ch, stop := broker.Listen(CollectionComments)
		defer stop()

		NewChangePublisher(notifications.NewNotifier(nil), broker).Changed(context.Background(), CollectionComments)
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("expected local signal")
		}
	})

	t.Run("with redis the change arrives through the subscription", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()

		n := notifications.NewNotifier(rdb)
		broker := NewBroker()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, broker.Run(ctx, n))

		ch, stop := broker.Listen(CollectionLikes)
		defer stop()

		time.Sleep(50 * time.Millisecond)
		NewChangePublisher(n, broker).Changed(ctx, CollectionLikes)
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("expected change via redis")
		}
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		var p *ChangePublisher
		p.Changed(context.Background(), CollectionStories)
	})
}
