package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"agrimarket/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.store.now = func() time.Time { return s.now }
}

func (s *InMemoryStoreSuite) newSession(ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		Token:     "tok",
		User:      User{ID: "u1", Role: "farmer"},
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *InMemoryStoreSuite) TestLookup() {
	ctx := context.Background()

	s.Run("returns stored session", func() {
		sess := s.newSession(time.Hour)
		s.Require().NoError(s.store.Save(ctx, sess))

		found, err := s.store.Find(ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(sess, found)
		s.NotSame(sess, found, "callers get a copy")
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Find(ctx, uuid.New())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestExpiry() {
	ctx := context.Background()

	s.Run("lapsed sessions are evicted", func() {
		sess := s.newSession(time.Minute)
		s.Require().NoError(s.store.Save(ctx, sess))

		s.now = s.now.Add(2 * time.Minute)
		_, err := s.store.Find(ctx, sess.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.NotContains(s.store.sessions, sess.ID)
	})

	s.Run("already expired sessions are refused", func() {
		err := s.store.Save(ctx, s.newSession(-time.Second))
		s.ErrorIs(err, sentinel.ErrExpired)
	})
}

func (s *InMemoryStoreSuite) TestDelete() {
	ctx := context.Background()
	sess := s.newSession(time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	s.Require().NoError(s.store.Delete(ctx, sess.ID))
	_, err := s.store.Find(ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Delete(ctx, uuid.New()), "deleting twice is fine")
}
