package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/platform/logger"
	"agrimarket/pkg/platform/circuit"
)

type failingStore struct{ calls int }

func (f *failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	f.calls++
	return Result{}, errors.New("connection refused")
}

func TestLimiterCountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLimiter(Limit{Requests: 1, Window: time.Minute}, NewInMemoryStore(),
		WithRegisterer(reg), WithLogger(logger.Discard()))

	first, err := l.Check(context.Background(), "ip:1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	second, err := l.Check(context.Background(), "ip:1")
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	assert.Equal(t, 1.0, testutil.ToFloat64(l.checks.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.checks.WithLabelValues("rejected")))
}

func TestLimiterFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &failingStore{}
	l := NewLimiter(Limit{Requests: 1, Window: time.Minute}, primary,
		WithFallback(NewInMemoryStore()),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		WithLogger(logger.Discard()))
	ctx := context.Background()

	_, err := l.Check(ctx, "ip:1")
	assert.Error(t, err, "breaker still closed")

	res, err := l.Check(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, primary.calls, "primary is still probed while open")
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(Limit{Requests: 1, Window: time.Minute}, NewInMemoryStore())
	h := Middleware(l, func(*http.Request) string { return "ip:test" }, logger.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	l := NewLimiter(Limit{Requests: 1, Window: time.Minute}, &failingStore{})
	h := Middleware(l, nil, logger.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRetryAfterNeverBelowOne(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1, Result{ResetAt: now}.RetryAfter(now))
	assert.Equal(t, 30, Result{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
}
