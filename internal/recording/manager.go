package recording

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arvi1709/AI-library/internal/storage"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("recording session not found")

// Manager owns the live recording sessions and reaps idle ones.
type Manager struct {
	idleTimeout time.Duration
	maxBytes    int
	store       storage.ObjectStore
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source of the manager and its sessions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithStore persists each finalized recording under its recordings/ key.
func WithStore(store storage.ObjectStore) Option {
	return func(m *Manager) { m.store = store }
}

// WithMaxBytes caps the buffered size of one recording.
func WithMaxBytes(n int) Option {
	return func(m *Manager) { m.maxBytes = n }
}

func NewManager(idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens an idle session for userID.
func (m *Manager) Create(userID uint) *Session {
	s := newSession(uuid.NewString(), userID, m.now, m.maxBytes)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session if it belongs to userID.
func (m *Manager) Get(id string, userID uint) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove cancels and forgets a session.
func (m *Manager) Remove(id string, userID uint) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()
	s.Cancel()
	return nil
}

// RemoveUser drops every session of userID.
func (m *Manager) RemoveUser(userID uint) int {
	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if s.UserID == userID {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range victims {
		s.Cancel()
	}
	return len(victims)
}

// Finalize stops the session and stores the audio when a store is
// configured. A failed upload is logged; the audio stays in memory.
func (m *Manager) Finalize(ctx context.Context, s *Session) (*Audio, error) {
	audio, err := s.Stop()
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		key := storage.RecordingKey(s.UserID, audio.CreatedAt)
		url, err := m.store.Put(ctx, key, bytes.NewReader(audio.Bytes()))
		if err != nil {
			slog.WarnContext(ctx, "failed to persist recording", "key", key, "error", err)
		} else {
			s.setAudioURL(url)
		}
	}
	return s.Audio(), nil
}

// StopAndTranscribe finalizes the session and transcribes it straight away.
func (m *Manager) StopAndTranscribe(ctx context.Context, s *Session, t Transcriber) (string, error) {
	if _, err := m.Finalize(ctx, s); err != nil {
		return "", err
	}
	return s.Transcribe(ctx, t)
}

// Reap drops sessions idle for longer than the idle timeout.
func (m *Manager) Reap() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if s.State() == StateTranscribing {
			continue
		}
		if s.idleSince().Before(cutoff) {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range victims {
		s.Cancel()
	}
	return len(victims)
}

// StartReaper reaps idle sessions every interval until Stop or ctx ends.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	if m.stopReaper != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.stopReaper = cancel
	m.reaperDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Reap(); n > 0 {
					slog.Info("reaped idle recording sessions", "count", n)
				}
			}
		}
	}()
}

// Stop halts the reaper and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.stopReaper, m.reaperDone
	m.stopReaper, m.reaperDone = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
