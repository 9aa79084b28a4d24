package session

import (
	"context"

	"github.com/google/uuid"
)

// Store persists sessions. Find returns sentinel.ErrNotFound for unknown or
// lapsed sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
