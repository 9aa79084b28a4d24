package ratelimit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agrimarket/pkg/platform/circuit"
)

// Limiter applies one Limit against a primary Store. When the primary keeps
// failing it switches to an in-process fallback until the primary recovers.
type Limiter struct {
	limit    Limit
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	checks   *prometheus.CounterVec
}

type Option func(*Limiter)

// WithFallback sets the store used while the breaker is open.
func WithFallback(s Store) Option {
	return func(l *Limiter) { l.fallback = s }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		if b != nil {
			l.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRegisterer counts decisions as agrimarket_ratelimit_checks_total.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		l.checks = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_ratelimit_checks_total",
			Help: "Rate limit decisions by outcome",
		}, []string{"outcome"})
	}
}

func NewLimiter(limit Limit, primary Store, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		primary: primary,
		breaker: circuit.New("ratelimit-store"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check spends one request of key's budget. An error means neither store
// could answer; callers let the request through.
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	res, err := l.primary.Allow(ctx, key, l.limit.Requests, l.limit.Window)
	if err == nil {
		if _, change := l.breaker.RecordSuccess(); change.Closed {
			l.logger.InfoContext(ctx, "rate limit store recovered")
		}
		l.observe(res)
		return res, nil
	}

	useFallback, change := l.breaker.RecordFailure()
	if change.Opened {
		l.logger.WarnContext(ctx, "rate limit store degraded, using fallback", "error", err)
	}
	if !useFallback || l.fallback == nil {
		l.count("error")
		return Result{}, err
	}
	res, err = l.fallback.Allow(ctx, key, l.limit.Requests, l.limit.Window)
	if err != nil {
		l.count("error")
		return Result{}, err
	}
	l.observe(res)
	return res, nil
}

func (l *Limiter) observe(res Result) {
	if res.Allowed {
		l.count("allowed")
		return
	}
	l.count("rejected")
}

func (l *Limiter) count(outcome string) {
	if l.checks != nil {
		l.checks.WithLabelValues(outcome).Inc()
	}
}
