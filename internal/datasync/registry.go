package datasync

import (
	"context"
	"sync"
)

// Registry tracks the open sessions of this instance.
type Registry struct {
	broker  *Broker
	loaders Loaders

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewRegistry(broker *Broker, loaders Loaders) *Registry {
	return &Registry{
		broker:   broker,
		loaders:  loaders,
		sessions: make(map[*Session]struct{}),
	}
}

// Open creates a session subscribed to the default collections.
func (r *Registry) Open(ctx context.Context, userID uint, tokenID string, send func([]byte) bool) (*Session, error) {
	s := NewSession(ctx, userID, tokenID, r.broker, r.loaders, send)
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()

	if err := s.Open(); err != nil {
		r.Remove(s)
		return nil, err
	}
	return s, nil
}

// Remove closes s and forgets it.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s)
	r.mu.Unlock()
	s.Close()
}

// CloseToken closes the sessions opened with tokenID and reports how many.
func (r *Registry) CloseToken(tokenID string) int {
	return r.closeMatching(func(s *Session) bool { return s.TokenID == tokenID })
}

// CloseUser closes every session of userID.
func (r *Registry) CloseUser(userID uint) int {
	return r.closeMatching(func(s *Session) bool { return s.UserID == userID })
}

// CloseAll closes every session. Used on shutdown.
func (r *Registry) CloseAll() {
	r.closeMatching(func(*Session) bool { return true })
}

// Count is the number of open sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) closeMatching(match func(*Session) bool) int {
	r.mu.Lock()
	var victims []*Session
	for s := range r.sessions {
		if match(s) {
			victims = append(victims, s)
			delete(r.sessions, s)
		}
	}
	r.mu.Unlock()

	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}
