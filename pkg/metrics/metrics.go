// Package metrics defines the Prometheus collectors for the recommendation
// engine and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine's collectors. One instance per process.
type Metrics struct {
	reg *prometheus.Registry

	// Requests counts assembled recommendations by outcome
	// (generated, fallback, failed).
	Requests *prometheus.CounterVec
	// RequestDuration observes end-to-end assembly latency by outcome.
	RequestDuration *prometheus.HistogramVec
	// ProviderAttempts counts generation attempts by hop and status.
	ProviderAttempts *prometheus.CounterVec
	// MatcherFailures counts absorbed similarity-matcher failures.
	MatcherFailures prometheus.Counter
	// CorpusProjects tracks the active snapshot size.
	CorpusProjects prometheus.Gauge
	// EmbedDuration observes embedding call latency.
	EmbedDuration prometheus.Histogram
}

// New creates the engine collectors on a fresh registry, including the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackpilot_requests_total",
			Help: "Recommendations assembled, by outcome.",
		}, []string{"outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackpilot_request_duration_seconds",
			Help:    "End-to-end recommendation latency, by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		ProviderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackpilot_provider_attempts_total",
			Help: "Generation provider attempts, by hop and status.",
		}, []string{"hop", "status"}),
		MatcherFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "stackpilot_matcher_failures_total",
			Help: "Similarity matcher failures absorbed by the assembler.",
		}),
		CorpusProjects: f.NewGauge(prometheus.GaugeOpts{
			Name: "stackpilot_corpus_projects",
			Help: "Reference projects in the active corpus snapshot.",
		}),
		EmbedDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackpilot_embed_duration_seconds",
			Help:    "Query embedding call latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
