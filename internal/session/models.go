// Package session replaces scattered client-side token reads with one
// explicit session object, resolved per request and passed through context.
package session

import (
	"time"

	"github.com/google/uuid"
)

// User is the signed-in marketplace member as reported by the external API.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session binds an upstream bearer token to a browser.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has lapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OpenRequest is the body of POST /api/session.
type OpenRequest struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Response is the public view of a session. The token never leaves the
// server.
type Response struct {
	SessionID uuid.UUID `json:"session_id"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toResponse(s *Session) Response {
	return Response{SessionID: s.ID, User: s.User, ExpiresAt: s.ExpiresAt}
}
