package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/platform/sentinel"
)

// Service opens, resolves and closes sessions.
type Service struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	parser *jwt.Parser
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a session service. ttl applies to tokens that carry no
// expiry of their own.
func NewService(store Store, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
		parser: jwt.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open stores a session for token. JWT claims are read without verifying the
// signature; the external API verifies the token on every request it
// receives. Opaque tokens are accepted and live for the configured TTL.
func (s *Service) Open(ctx context.Context, token string, user User) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "token is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	if strings.Count(token, ".") == 2 {
		claims := jwt.MapClaims{}
		if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed token")
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed token expiry")
		}
		if exp != nil {
			if !exp.After(now) {
				return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
			}
			expiresAt = exp.Time
		}
		user = fillFromClaims(user, claims)
	}

	sess := &Session{
		ID:        uuid.New(),
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token has expired")
		}
		s.logger.ErrorContext(ctx, "failed to save session", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open session")
	}
	s.logger.InfoContext(ctx, "session opened",
		"session_id", sess.ID.String(),
		"role", sess.User.Role,
		"expires_at", sess.ExpiresAt,
	)
	return sess, nil
}

// Resolve loads a live session.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if sess.Expired(s.now()) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
	}
	return sess, nil
}

// Close deletes a session. Closing an unknown session is not an error.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close session")
	}
	return nil
}

// fillFromClaims lets identity claims carried by the token win over the
// request body. Body fields only fill what the token leaves out.
func fillFromClaims(user User, claims jwt.MapClaims) User {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		user.ID = sub
	} else if id, ok := claims["id"].(string); ok && id != "" {
		user.ID = id
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		user.Role = role
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		user.Email = email
	}
	return user
}
