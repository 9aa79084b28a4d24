package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrimarket/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a map. Lapsed entries are evicted lazily on
// lookup.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, sess *Session) error {
	if sess.Expired(s.now()) {
		return fmt.Errorf("save session %s: %w", sess.ID, sentinel.ErrExpired)
	}
	copied := *sess
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
