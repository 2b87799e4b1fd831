package recording

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvi1709/AI-library/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSession_ElapsedExcludesPauses(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(time.Hour, WithClock(clock.Now))
	s := m.Create(1)

	require.NoError(t, s.Start())
	clock.Advance(10 * time.Second)
	require.NoError(t, s.Append([]byte("a")))
	require.NoError(t, s.Pause())
	clock.Advance(time.Minute)
	assert.Equal(t, 10*time.Second, s.Elapsed())

	assert.ErrorIs(t, s.Append([]byte("b")), ErrInvalidState)

	require.NoError(t, s.Resume())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 15*time.Second, s.Elapsed())
	require.NoError(t, s.Append([]byte("b")))

	audio, err := s.Stop()
	require.NoError(t, err)
	clock.Advance(time.Minute)
	assert.Equal(t, 15*time.Second, s.Elapsed())

	assert.Equal(t, []byte("ab"), audio.Bytes())
	assert.Equal(t, AudioMIMEType, audio.MIMEType)
	assert.Equal(t, storage.RecordingFileName(clock.Now().Add(-time.Minute)), audio.FileName)
	assert.Zero(t, s.Status().Buffered)
	assert.Equal(t, 15, s.Status().Seconds)
}

func TestSession_InvalidTransitions(t *testing.T) {
	s := NewManager(0).Create(1)

	assert.ErrorIs(t, s.Pause(), ErrInvalidState)
	assert.ErrorIs(t, s.Resume(), ErrInvalidState)
	_, err := s.Stop()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.Transcribe(context.Background(), TranscriberFunc(func(context.Context, *Audio) (string, error) {
		return "", nil
	}))
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrInvalidState)
	_, err = s.Stop()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, StateRecording, s.State())
}

func TestSession_SizeLimit(t *testing.T) {
	s := NewManager(0, WithMaxBytes(4)).Create(1)
	require.NoError(t, s.Start())
	require.NoError(t, s.Append([]byte("abc")))
	assert.ErrorIs(t, s.Append([]byte("de")), ErrTooLarge)
}

func TestSession_TranscriptionRetryKeepsAudio(t *testing.T) {
	m := NewManager(0)
	s := m.Create(1)
	require.NoError(t, s.Start())
	require.NoError(t, s.Append([]byte("voice")))

	calls := 0
	var seen [][]byte
	flaky := TranscriberFunc(func(_ context.Context, a *Audio) (string, error) {
		calls++
		seen = append(seen, a.Bytes())
		if calls == 1 {
			return "", errors.New("model unavailable")
		}
		return "hello there", nil
	})

	_, err := m.StopAndTranscribe(context.Background(), s, flaky)
	require.Error(t, err)
	st := s.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, TranscriptionFailedMessage, st.Error)
	require.NotNil(t, st.Audio)

	text, err := s.Transcribe(context.Background(), flaky)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, StateDone, s.State())
	assert.Empty(t, s.Status().Error)
	assert.Equal(t, [][]byte{[]byte("voice"), []byte("voice")}, seen)
}

func TestSession_Cancel(t *testing.T) {
	s := NewManager(0).Create(1)
	require.NoError(t, s.Start())
	require.NoError(t, s.Append([]byte("x")))
	s.Cancel()

	st := s.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Zero(t, st.Buffered)
	assert.Nil(t, st.Audio)
	require.NoError(t, s.Start())
}

func TestManager_StoresFinalizedAudio(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	clock := newFakeClock()
	m := NewManager(0, WithStore(store), WithClock(clock.Now))

	s := m.Create(7)
	require.NoError(t, s.Start())
	require.NoError(t, s.Append([]byte("webm-bytes")))

	text, err := m.StopAndTranscribe(context.Background(), s, TranscriberFunc(func(context.Context, *Audio) (string, error) {
		return "transcript", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "transcript", text)

	key := storage.RecordingKey(7, clock.Now())
	audio := s.Audio()
	require.NotNil(t, audio)
	assert.Equal(t, store.URL(key), audio.URL)

	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(body))
}

func TestManager_OwnershipAndReap(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(30*time.Minute, WithClock(clock.Now))

	stale := m.Create(1)
	clock.Advance(20 * time.Minute)
	active := m.Create(1)
	other := m.Create(2)

	_, err := m.Get(other.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, m.Reap())
	_, err = m.Get(stale.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(active.ID, 1)
	assert.NoError(t, err)

	assert.Equal(t, 1, m.RemoveUser(2))
	assert.NoError(t, m.Remove(active.ID, 1))
	assert.ErrorIs(t, m.Remove(active.ID, 1), ErrNotFound)
	assert.Zero(t, m.Len())
}

func TestManager_ReaperStops(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(time.Minute, WithClock(clock.Now))
	m.Create(1)
	clock.Advance(time.Hour)

	m.StartReaper(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}
