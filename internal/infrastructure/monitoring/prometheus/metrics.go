// Package prometheus exposes the ChemScribe metric registry.  Metrics are
// registered on a private registry rather than the global default so that
// tests can construct isolated instances without double-registration panics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every instrument the platform records.  A single instance is
// constructed at startup and injected into the services that need it.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts completed HTTP requests by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes request latency by route.
	HTTPDuration *prometheus.HistogramVec

	// PipelineStageDuration observes wall-clock time of each workflow stage
	// (retrieve, summarize, draft, refine, structure, assemble).
	PipelineStageDuration *prometheus.HistogramVec

	// PipelineStageOutcomes counts stage completions by stage and outcome
	// (ok, error).
	PipelineStageOutcomes *prometheus.CounterVec

	// ProviderCalls counts AI provider invocations by provider and outcome
	// (ok, timeout, auth, rate_limited, empty, error).
	ProviderCalls *prometheus.CounterVec

	// ProviderLatency observes AI provider round-trip latency by provider.
	ProviderLatency *prometheus.HistogramVec

	// StructureAttempts observes how many generation attempts a structure run
	// consumed before producing a valid candidate or exhausting the budget.
	StructureAttempts prometheus.Histogram

	// StructureRejections counts rejected candidates by reason
	// (invalid_smiles, malformed_response, provider_error).
	StructureRejections *prometheus.CounterVec

	// SessionsByStatus tracks the number of sessions currently in each status.
	SessionsByStatus *prometheus.GaugeVec

	// DocumentsAssembled counts completed document bundles.
	DocumentsAssembled prometheus.Counter

	// LiteratureFetched observes papers returned per retrieval by source.
	LiteratureFetched *prometheus.HistogramVec
}

// NewMetrics constructs a Metrics instance with its own registry, including
// the standard Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemscribe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Completed HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemscribe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		PipelineStageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemscribe",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent in each workflow stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		PipelineStageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemscribe",
			Subsystem: "pipeline",
			Name:      "stage_outcomes_total",
			Help:      "Stage completions by outcome.",
		}, []string{"stage", "outcome"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemscribe",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "AI provider invocations by outcome.",
		}, []string{"provider", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemscribe",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "AI provider round-trip latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		StructureAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chemscribe",
			Subsystem: "structure",
			Name:      "attempts_per_run",
			Help:      "Generation attempts consumed per structure run.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		StructureRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemscribe",
			Subsystem: "structure",
			Name:      "rejections_total",
			Help:      "Rejected structure candidates by reason.",
		}, []string{"reason"}),
		SessionsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemscribe",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently in each status.",
		}, []string{"status"}),
		DocumentsAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chemscribe",
			Subsystem: "documents",
			Name:      "assembled_total",
			Help:      "Completed document bundles.",
		}),
		LiteratureFetched: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemscribe",
			Subsystem: "literature",
			Name:      "papers_per_fetch",
			Help:      "Papers returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.PipelineStageDuration,
		m.PipelineStageOutcomes,
		m.ProviderCalls,
		m.ProviderLatency,
		m.StructureAttempts,
		m.StructureRejections,
		m.SessionsByStatus,
		m.DocumentsAssembled,
		m.LiteratureFetched,
	)
	return m
}

// Handler returns the HTTP handler that serves the /metrics endpoint for this
// instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records the duration and outcome of a single pipeline stage.
func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	m.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PipelineStageOutcomes.WithLabelValues(stage, outcome).Inc()
}
