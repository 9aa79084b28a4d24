package session

import (
	"context"

	"agrimarket/internal/directory/schema"
	dErrors "agrimarket/pkg/domainerrors"
)

// Gate decides which kinds a request may see.
type Gate struct {
	loginURL string
}

// NewGate creates a gate that sends anonymous visitors to loginURL.
func NewGate(loginURL string) *Gate {
	return &Gate{loginURL: loginURL}
}

// LoginURL is the sign-in entry point offered on rejection.
func (g *Gate) LoginURL() string {
	return g.loginURL
}

// Check returns nil when the request may see kind, an unauthorized error when
// it needs to sign in, and a forbidden error when its role is not admitted.
func (g *Gate) Check(ctx context.Context, kind schema.Kind) error {
	if !kind.Gated {
		return nil
	}
	sess, ok := FromContext(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "sign in to view "+kind.Title)
	}
	if !kind.AllowsRole(sess.User.Role) {
		return dErrors.New(dErrors.CodeForbidden, "your account cannot view "+kind.Title)
	}
	return nil
}

// Allows reports whether Check passes.
func (g *Gate) Allows(ctx context.Context, kind schema.Kind) bool {
	return g.Check(ctx, kind) == nil
}
