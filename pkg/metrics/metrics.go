// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform. A nil *Metrics
// is valid; its helper methods do nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     *prometheus.CounterVec
	IndexBuildsTotal     *prometheus.CounterVec
	IndexBuildDuration   *prometheus.HistogramVec
	IndexUniqueTerms     *prometheus.GaugeVec
	ScoringLatency       *prometheus.HistogramVec
	EvaluationsTotal     *prometheus.CounterVec
	FailuresTotal        *prometheus.CounterVec
	QueriesSkippedTotal  prometheus.Counter
	QrelsDroppedTotal    *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg, or with the
// default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of ranked-result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of ranked-result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed per variant.",
			},
			[]string{"variant"},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index variant builds by status.",
			},
			[]string{"variant", "status"},
		),
		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time to build one index variant.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variant"},
		),
		IndexUniqueTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_unique_terms",
				Help: "Vocabulary size per index variant.",
			},
			[]string{"variant"},
		),
		ScoringLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scoring_latency_seconds",
				Help:    "Latency of scoring one query with one model.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"model"},
		),
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_total",
				Help: "Total evaluated (variant, model, query) triples.",
			},
			[]string{"variant", "model"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combination_failures_total",
				Help: "Total failed (variant, model) combinations.",
			},
			[]string{"variant", "model"},
		),
		QueriesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "queries_not_evaluable_total",
				Help: "Total query evaluations skipped for lack of relevance judgments.",
			},
		),
		QrelsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrels_lines_dropped_total",
				Help: "Total relevance judgment lines dropped while loading, by reason.",
			},
			[]string{"reason"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexUniqueTerms,
		m.ScoringLatency,
		m.EvaluationsTotal,
		m.FailuresTotal,
		m.QueriesSkippedTotal,
		m.QrelsDroppedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveBuild records one variant build.
func (m *Metrics) ObserveBuild(variant string, docs, uniqueTerms int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.IndexBuildsTotal.WithLabelValues(variant, status).Inc()
	m.IndexBuildDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
	if err == nil {
		m.DocsIndexedTotal.WithLabelValues(variant).Add(float64(docs))
		m.IndexUniqueTerms.WithLabelValues(variant).Set(float64(uniqueTerms))
	}
}

// ObserveScoring records the latency of one ranking call.
func (m *Metrics) ObserveScoring(model string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScoringLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

func (m *Metrics) IncEvaluation(variant, model string) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(variant, model).Inc()
}

func (m *Metrics) IncFailure(variant, model string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(variant, model).Inc()
}

func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	m.QueriesSkippedTotal.Inc()
}

// AddQrelsDropped records dropped judgment lines for one reason.
func (m *Metrics) AddQrelsDropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.QrelsDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// ObserveSearch records one search API call.
func (m *Metrics) ObserveSearch(resultType, cacheStatus string, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
