package session

import (
	"net/http"

	"github.com/google/uuid"

	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/requestcontext"
)

// HeaderSessionID carries the session id for clients that do not keep
// cookies, such as agrictl.
const HeaderSessionID = "X-Session-ID"

// Middleware resolves the request's session from the cookie or header and
// stores it in the context. Requests without a live session continue
// anonymously.
func (s *Service) Middleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := idFromRequest(r, cookieName)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			id, err := uuid.Parse(raw)
			if err != nil {
				s.logger.DebugContext(ctx, "ignoring malformed session id",
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			sess, err := s.Resolve(ctx, id)
			if err != nil {
				if !dErrors.Is(err, dErrors.CodeUnauthorized) {
					s.logger.WarnContext(ctx, "session lookup failed",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

func idFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(HeaderSessionID)
}
