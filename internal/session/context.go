package session

import "context"

type contextKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}

// Token returns the bearer token of the request's session, or "" for
// anonymous requests.
func Token(ctx context.Context) string {
	if sess, ok := FromContext(ctx); ok {
		return sess.Token
	}
	return ""
}
