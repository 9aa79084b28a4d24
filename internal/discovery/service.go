package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/media"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery/metrics"
	"agrimarket/internal/geo"
	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/requestcontext"
)

const overviewConcurrency = 4

// Section is one kind's slice of the overview page.
type Section struct {
	Kind    schema.Kind     `json:"kind"`
	Total   int             `json:"total"`
	Matched int             `json:"matched"`
	Markers []models.Marker `json:"markers"`
	Err     string          `json:"error,omitempty"`
}

// Overview combines every visible kind on one map.
type Overview struct {
	Filter   models.FilterState `json:"filter"`
	Sections []Section          `json:"sections"`
	Markers  []models.Marker    `json:"markers"`
	Viewport geo.Viewport       `json:"viewport"`
}

// Detail is a single record with its resolved image.
type Detail struct {
	Record   models.Record  `json:"record"`
	ImageURL string         `json:"image_url,omitempty"`
	Marker   *models.Marker `json:"marker,omitempty"`
}

// Service runs page visits on behalf of the HTTP layer and the CLI.
type Service struct {
	fetcher   Fetcher
	kinds     *schema.Registry
	fit       geo.FitOptions
	mediaBase string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDefaultFit sets the map defaults; the surface size is chosen per device.
func WithDefaultFit(o geo.FitOptions) ServiceOption {
	return func(s *Service) { s.fit = o }
}

// WithMediaBaseURL sets the base URL for relative image paths.
func WithMediaBaseURL(base string) ServiceOption {
	return func(s *Service) { s.mediaBase = base }
}

// WithMetrics records page metrics.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a discovery service over f.
func NewService(f Fetcher, kinds *schema.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		fetcher: f,
		kinds:   kinds,
		fit:     geo.DefaultFitOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kinds returns the configured kinds in declaration order.
func (s *Service) Kinds() []schema.Kind {
	return s.kinds.All()
}

// Kind looks a kind up.
func (s *Service) Kind(kind models.Kind) (schema.Kind, error) {
	k, ok := s.kinds.Get(kind)
	if !ok {
		return schema.Kind{}, dErrors.New(dErrors.CodeNotFound, "unknown kind: "+string(kind))
	}
	return k, nil
}

// NewPage opens a page for kind sized for device.
func (s *Service) NewPage(kind schema.Kind, device requestcontext.DeviceClass, opts ...PageOption) *Page {
	fit := s.fit
	fit.Surface = geo.SurfaceFor(device)
	base := []PageOption{
		WithFitOptions(fit),
		WithMediaBase(s.mediaBase),
		WithPageMetrics(s.metrics),
		WithPageLogger(s.logger),
	}
	return NewPage(kind, s.fetcher, append(base, opts...)...)
}

// Discover performs one page visit: fetch, then filter with filter. Upstream
// failures are reported inside the snapshot, not as an error.
func (s *Service) Discover(ctx context.Context, kind models.Kind, filter models.FilterState, token string, device requestcontext.DeviceClass) (Snapshot, error) {
	k, err := s.Kind(kind)
	if err != nil {
		return Snapshot{}, err
	}
	page := s.NewPage(k, device, WithInitialFilter(filter))
	defer page.Close()

	snap := page.Load(ctx, token)
	if snap.Err != "" {
		s.logger.InfoContext(ctx, "discovery degraded",
			"kind", string(kind),
			"request_id", requestcontext.RequestID(ctx),
			"message", snap.Err,
		)
	}
	return snap, nil
}

// Overview loads every kind allow admits concurrently and merges their
// markers into one viewport. A nil allow admits the non-gated kinds. A kind
// that fails to load contributes an empty section.
func (s *Service) Overview(ctx context.Context, filter models.FilterState, token string, device requestcontext.DeviceClass, allow func(schema.Kind) bool) (Overview, error) {
	if allow == nil {
		allow = func(k schema.Kind) bool { return !k.Gated }
	}
	var kinds []schema.Kind
	for _, k := range s.kinds.All() {
		if allow(k) {
			kinds = append(kinds, k)
		}
	}

	sections := make([]Section, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)
	for i, k := range kinds {
		g.Go(func() error {
			page := s.NewPage(k, device, WithInitialFilter(filter))
			defer page.Close()
			snap := page.Load(gctx, token)
			sections[i] = Section{
				Kind:    k,
				Total:   len(snap.Records),
				Matched: len(snap.View),
				Markers: snap.Markers,
				Err:     snap.Err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	markers := []models.Marker{}
	for _, sec := range sections {
		markers = append(markers, sec.Markers...)
	}
	fit := s.fit
	fit.Surface = geo.SurfaceFor(device)
	return Overview{
		Filter:   filter,
		Sections: sections,
		Markers:  markers,
		Viewport: geo.Fit(markers, fit),
	}, nil
}

// Detail fetches one record.
func (s *Service) Detail(ctx context.Context, kind models.Kind, id, token string) (Detail, error) {
	k, err := s.Kind(kind)
	if err != nil {
		return Detail{}, err
	}
	if id == "" {
		return Detail{}, dErrors.New(dErrors.CodeBadRequest, "id is required")
	}

	rec, err := s.fetcher.Get(ctx, kind, id, token)
	if err != nil {
		switch {
		case fetcher.IsNotFound(err):
			return Detail{}, dErrors.Wrap(err, dErrors.CodeNotFound, string(kind)+" "+id+" not found")
		case fetcher.CategoryOf(err) == fetcher.CategoryAPI:
			var fe *fetcher.FetchError
			if errors.As(err, &fe) && (fe.Status == http.StatusUnauthorized || fe.Status == http.StatusForbidden) {
				return Detail{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "sign in to view this record")
			}
		}
		return Detail{}, dErrors.Wrap(err, dErrors.CodeUnavailable, fetcher.UserMessage(err))
	}

	d := Detail{Record: rec, ImageURL: media.ResolveURL(s.mediaBase, rec.Image)}
	if markers := geo.Project([]models.Record{rec}, k, s.mediaBase); len(markers) == 1 {
		d.Marker = &markers[0]
	}
	return d, nil
}
