// Package discovery drives a marketplace discovery page: one fetch of a
// collection, then local filtering, projection and viewport fitting.
package discovery

import (
	"context"
	"log/slog"
	"sync"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/directory/search"
	"agrimarket/internal/discovery/metrics"
	"agrimarket/internal/geo"
)

// Fetcher reads directory collections from the external API.
type Fetcher interface {
	List(ctx context.Context, kind models.Kind, token string) ([]models.Record, error)
	Get(ctx context.Context, kind models.Kind, id, token string) (models.Record, error)
}

// State is the page lifecycle state.
type State string

const (
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateFiltered State = "filtered"
	StateError    State = "error"
)

const interruptedMessage = "Loading was interrupted. Please try again."

// Snapshot is a consistent view of a page.
type Snapshot struct {
	Kind       models.Kind        `json:"kind"`
	State      State              `json:"state"`
	Loading    bool               `json:"loading"`
	Filter     models.FilterState `json:"filter"`
	Records    []models.Record    `json:"-"`
	View       []models.Record    `json:"records"`
	Markers    []models.Marker    `json:"markers"`
	Viewport   geo.Viewport       `json:"viewport"`
	Categories []string           `json:"categories,omitempty"`
	Err        string             `json:"error,omitempty"`
}

// Page holds the working collection of one page visit. It is safe for
// concurrent use; a newer Load supersedes older in-flight ones.
type Page struct {
	kind      schema.Kind
	fetcher   Fetcher
	fit       geo.FitOptions
	mediaBase string
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	loading    bool
	filter     models.FilterState
	records    []models.Record
	view       []models.Record
	markers    []models.Marker
	viewport   geo.Viewport
	categories []string
	errMsg     string
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	// hasData is set once a load succeeded; failed refetches keep records.
	hasData bool
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithFitOptions sets the map defaults and surface size.
func WithFitOptions(o geo.FitOptions) PageOption {
	return func(p *Page) { p.fit = o }
}

// WithMediaBase sets the base URL relative image paths resolve against.
func WithMediaBase(base string) PageOption {
	return func(p *Page) { p.mediaBase = base }
}

// WithPageMetrics records marker counts and superseded loads.
func WithPageMetrics(m *metrics.Metrics) PageOption {
	return func(p *Page) { p.metrics = m }
}

// WithPageLogger sets the logger.
func WithPageLogger(l *slog.Logger) PageOption {
	return func(p *Page) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInitialFilter replaces the default filter state.
func WithInitialFilter(f models.FilterState) PageOption {
	return func(p *Page) { p.filter = f }
}

// NewPage creates a page in the Loading state with the default filter.
func NewPage(kind schema.Kind, f Fetcher, opts ...PageOption) *Page {
	p := &Page{
		kind:    kind,
		fetcher: f,
		fit:     geo.DefaultFitOptions(),
		logger:  slog.Default(),
		state:   StateLoading,
		loading: true,
		filter:  models.DefaultFilterState(),
		records: []models.Record{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.recomputeLocked()
	return p
}

// Load fetches the collection and returns the resulting snapshot. When a newer
// Load or Close overtakes it, its result is discarded and the current
// snapshot is returned instead.
func (p *Page) Load(ctx context.Context, token string) Snapshot {
	p.mu.Lock()
	if p.closed {
		defer p.mu.Unlock()
		return p.snapshotLocked()
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.loading = true
	if p.state == StateError {
		p.state = StateLoading
	}
	p.mu.Unlock()
	defer cancel()

	recs, err := p.fetcher.List(ctx, p.kind.Kind, token)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.generation {
		p.metrics.IncrementSuperseded(string(p.kind.Kind))
		p.logger.DebugContext(ctx, "discarding superseded load", "kind", string(p.kind.Kind))
		return p.snapshotLocked()
	}
	p.cancel = nil
	p.loading = false

	if err != nil {
		if !p.hasData {
			p.records = []models.Record{}
		}
		p.state = StateError
		p.errMsg = fetcher.UserMessage(err)
		if p.errMsg == "" {
			p.errMsg = interruptedMessage
		}
	} else {
		if recs == nil {
			recs = []models.Record{}
		}
		p.records = recs
		p.hasData = true
		p.state = StateLoaded
		p.errMsg = ""
	}
	p.recomputeLocked()
	return p.snapshotLocked()
}

// SetFilter replaces the filter state and recomputes the view. While loading
// the filter is kept and applied when data arrives.
func (p *Page) SetFilter(f models.FilterState) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.snapshotLocked()
	}
	p.filter = f
	if p.state == StateLoaded || p.state == StateFiltered {
		p.state = StateFiltered
	}
	p.recomputeLocked()
	return p.snapshotLocked()
}

// Snapshot returns the current page contents.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Close cancels any in-flight load. The page does not change afterwards.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Page) recomputeLocked() {
	p.view = search.Filter(p.records, p.kind, p.filter)
	p.markers = geo.Project(p.view, p.kind, p.mediaBase)
	p.viewport = geo.Fit(p.markers, p.fit)
	p.categories = search.Categories(p.records, p.kind)
	p.metrics.SetMarkers(string(p.kind.Kind), len(p.markers))
}

func (p *Page) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:       p.kind.Kind,
		State:      p.state,
		Loading:    p.loading,
		Filter:     p.filter,
		Records:    p.records,
		View:       p.view,
		Markers:    p.markers,
		Viewport:   p.viewport,
		Categories: p.categories,
		Err:        p.errMsg,
	}
}
