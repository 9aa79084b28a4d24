// Package httpapi assembles the gateway's HTTP surface: the shared middleware
// chain, the API route groups and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	discoveryhandler "agrimarket/internal/discovery/handler"
	"agrimarket/internal/platform/middleware"
	"agrimarket/internal/ratelimit"
	"agrimarket/internal/session"
	"agrimarket/pkg/platform/httputil"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the pieces NewRouter mounts.
type Deps struct {
	Logger         *slog.Logger
	Sessions       *session.Service
	SessionCookie  string
	SessionHandler *session.Handler
	Discovery      *discoveryhandler.Handler
	RateLimiter    *ratelimit.Limiter
	Metrics        http.Handler
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
}

// NewRouter wires every public endpoint behind the common middleware chain.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))

	r.Get("/healthz", healthHandler(d.Health))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(api chi.Router) {
		if d.RequestTimeout > 0 {
			api.Use(middleware.Timeout(d.RequestTimeout))
		}
		api.Use(middleware.ContentTypeJSON)
		api.Use(d.Sessions.Middleware(d.SessionCookie))
		if d.RateLimiter != nil {
			api.Use(ratelimit.Middleware(d.RateLimiter, rateLimitKey, d.Logger))
		}
		d.SessionHandler.Register(api)
		d.Discovery.Register(api)
	})
	return r
}

// rateLimitKey charges signed-in users by user id and everyone else by IP.
func rateLimitKey(r *http.Request) string {
	if sess, ok := session.FromContext(r.Context()); ok && sess.User.ID != "" {
		return ratelimit.UserKey(sess.User.ID)
	}
	return ratelimit.ClientIP(r)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
