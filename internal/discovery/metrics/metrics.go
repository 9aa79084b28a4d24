package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for upstream fetches and page recomputation.
type Metrics struct {
	// Upstream fetch outcomes by kind and category ("ok", "transport", ...)
	FetchOutcome *prometheus.CounterVec

	// Upstream fetch latency by kind
	FetchLatency *prometheus.HistogramVec

	// Markers produced by the last projection, by kind
	Markers *prometheus.GaugeVec

	// Loads discarded because a newer load or a close superseded them
	Superseded *prometheus.CounterVec
}

// New registers the discovery metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_fetch_outcomes_total",
			Help: "Upstream fetch outcomes by kind and outcome",
		}, []string{"kind", "outcome"}),

		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agrimarket_fetch_duration_seconds",
			Help:    "Duration of upstream list and detail fetches",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),

		Markers: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agrimarket_markers",
			Help: "Markers in the most recent projection by kind",
		}, []string{"kind"}),

		Superseded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_loads_superseded_total",
			Help: "Fetch results discarded because the page moved on",
		}, []string{"kind"}),
	}
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(kind, outcome string, d time.Duration) {
	if m != nil {
		m.FetchOutcome.WithLabelValues(kind, outcome).Inc()
		m.FetchLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// SetMarkers records the marker count of a projection.
func (m *Metrics) SetMarkers(kind string, n int) {
	if m != nil {
		m.Markers.WithLabelValues(kind).Set(float64(n))
	}
}

// IncrementSuperseded records a discarded fetch result.
func (m *Metrics) IncrementSuperseded(kind string) {
	if m != nil {
		m.Superseded.WithLabelValues(kind).Inc()
	}
}
