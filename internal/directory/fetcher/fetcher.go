// Package fetcher reads marketplace collections from the external API's
// {success, data} envelope.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agrimarket/internal/directory/adapter"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery/metrics"
	"agrimarket/pkg/platform/circuit"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 16 << 20
	tracerName     = "agrimarket/fetcher"
)

// Client fetches directory collections. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	kinds   *schema.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	breaker *circuit.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithRegistry replaces the embedded kind table.
func WithRegistry(r *schema.Registry) Option {
	return func(cl *Client) {
		if r != nil {
			cl.kinds = r
		}
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithBreaker replaces the upstream health breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		if b != nil {
			cl.breaker = b
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		kinds:   schema.Default(),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		breaker: circuit.New("marketplace-api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health reports ErrUpstreamDegraded while consecutive transport or 5xx
// failures keep the breaker open. It does not call the API.
func (c *Client) Health(context.Context) error {
	if c.breaker.IsOpen() {
		return ErrUpstreamDegraded
	}
	return nil
}

// Kinds returns the kind table the client resolves paths from.
func (c *Client) Kinds() *schema.Registry {
	return c.kinds
}

type envelope struct {
	Success any             `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// List fetches every record of kind. On failure it returns an empty, non-nil
// slice together with a *FetchError.
func (c *Client) List(ctx context.Context, kind models.Kind, token string) ([]models.Record, error) {
	empty := []models.Record{}
	k, ok := c.kinds.Get(kind)
	if !ok {
		return empty, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var items []any
	err := c.do(ctx, k, k.Path, token, func(data json.RawMessage) error {
		if err := json.Unmarshal(data, &items); err != nil || items == nil {
			return newFetchError(CategoryShape, kind, 0, "data is not a list", err)
		}
		return nil
	})
	if err != nil {
		return empty, err
	}
	return adapter.NormalizeAll(k, items), nil
}

// Get fetches a single record of kind by id.
func (c *Client) Get(ctx context.Context, kind models.Kind, id, token string) (models.Record, error) {
	k, ok := c.kinds.Get(kind)
	if !ok {
		return models.Record{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var rec models.Record
	err := c.do(ctx, k, k.Path+"/"+url.PathEscape(id), token, func(data json.RawMessage) error {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
			return newFetchError(CategoryShape, kind, 0, "data is not an object", err)
		}
		if obj["id"] == nil && obj["_id"] == nil {
			obj["id"] = id
		}
		var ok bool
		if rec, ok = adapter.Normalize(k, obj); !ok {
			return newFetchError(CategoryShape, kind, 0, "record has no identifier", nil)
		}
		return nil
	})
	if err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// do performs one GET and hands the envelope's data payload to decode.
func (c *Client) do(ctx context.Context, k schema.Kind, path, token string, decode func(json.RawMessage) error) error {
	ctx, span := c.tracer.Start(ctx, "fetcher.get", trace.WithAttributes(
		attribute.String("agrimarket.kind", string(k.Kind)),
		attribute.String("http.path", path),
	))
	defer span.End()

	start := time.Now()
	data, err := c.roundTrip(ctx, k.Kind, path, token)
	if err == nil {
		err = decode(data)
	}
	outcome := "ok"
	if err != nil {
		outcome = string(CategoryOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	c.metrics.ObserveFetch(string(k.Kind), outcome, time.Since(start))
	c.track(ctx, err)
	if err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, kind models.Kind, path, token string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, newFetchError(CategoryTransport, kind, 0, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, kind, err)
	}

	var env envelope
	decodeErr := json.NewDecoder(bytes.NewReader(body)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, newFetchError(CategoryAPI, kind, resp.StatusCode, msg, nil)
	}
	if decodeErr != nil {
		return nil, newFetchError(CategoryShape, kind, 0, "body is not a JSON envelope", decodeErr)
	}
	if ok, _ := env.Success.(bool); !ok {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, newFetchError(CategoryAPI, kind, 0, msg, nil)
	}
	return env.Data, nil
}

func transportError(ctx context.Context, kind models.Kind, err error) *FetchError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return newFetchError(CategoryCanceled, kind, 0, "request canceled", err)
	}
	return newFetchError(CategoryTransport, kind, 0, "request failed", err)
}

// track feeds the breaker. Only failures that say nothing about the request
// itself count against the upstream.
func (c *Client) track(ctx context.Context, err error) {
	var fe *FetchError
	upstreamFault := errors.As(err, &fe) &&
		(fe.Category == CategoryTransport || (fe.Category == CategoryAPI && fe.Status >= http.StatusInternalServerError))
	switch {
	case IsCanceled(err):
		return
	case upstreamFault:
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.ErrorContext(ctx, "marketplace api degraded", "breaker", c.breaker.Name())
		}
	default:
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "marketplace api recovered", "breaker", c.breaker.Name())
		}
	}
}

func (c *Client) fail(ctx context.Context, err error) error {
	if IsCanceled(err) {
		c.logger.DebugContext(ctx, "fetch canceled", "error", err)
		return err
	}
	c.logger.WarnContext(ctx, "fetch failed",
		"category", string(CategoryOf(err)),
		"error", err,
	)
	return err
}
