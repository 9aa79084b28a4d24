package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"agrimarket/pkg/platform/httputil"
	"agrimarket/pkg/requestcontext"
)

// KeyFunc names the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// ClientIP charges requests to the client IP recorded by ClientMetadata.
func ClientIP(r *http.Request) string {
	return IPKey(requestcontext.ClientIP(r.Context()))
}

// Middleware rejects requests over budget with 429 and sets the
// X-RateLimit-* headers on every checked response. Store failures fail open.
func Middleware(l *Limiter, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			res, err := l.Check(ctx, key(r))
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retry := res.RetryAfter(time.Now())
			h.Set("Retry-After", strconv.Itoa(retry))
			httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many requests. Please try again later.",
				RetryAfter: retry,
			})
		})
	}
}
