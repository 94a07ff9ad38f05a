// Package metrics defines the Prometheus collectors for the menu search
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal        *prometheus.CounterVec
	HTTPRequestDuration      *prometheus.HistogramVec
	HTTPRequestsInFlight     prometheus.Gauge
	SearchQueriesTotal       *prometheus.CounterVec
	SearchLatency            *prometheus.HistogramVec
	SearchResultsCount       prometheus.Histogram
	IntentsTotal             *prometheus.CounterVec
	IndexBuildsTotal         *prometheus.CounterVec
	IndexBuildDuration       prometheus.Histogram
	IndexDocuments           *prometheus.GaugeVec
	IndexTerms               *prometheus.GaugeVec
	SynonymsLearnedTotal     prometheus.Counter
	SynonymPersistErrorTotal prometheus.Counter
	CacheHitsTotal           prometheus.Counter
	CacheMissesTotal         prometheus.Counter
	CatalogReloadsTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
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
				Name: "menu_search_queries_total",
				Help: "Total searches by language and outcome (hit, zero_result, empty_query).",
			},
			[]string{"lang", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "menu_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "menu_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 2, 3, 5, 10},
			},
		),
		IntentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menu_chat_intents_total",
				Help: "Chat messages by resolved intent.",
			},
			[]string{"intent"},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menu_index_builds_total",
				Help: "Index builds by language and trigger.",
			},
			[]string{"lang", "trigger"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "menu_index_build_duration_seconds",
				Help:    "Index build duration in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "menu_index_documents",
				Help: "Documents in the live index per language.",
			},
			[]string{"lang"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "menu_index_terms",
				Help: "Vocabulary size of the live index per language.",
			},
			[]string{"lang"},
		),
		SynonymsLearnedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_synonyms_learned_total",
				Help: "Personal synonym pairs learned from searches.",
			},
		),
		SynonymPersistErrorTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_synonym_persist_errors_total",
				Help: "Failed attempts to persist learned synonyms.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "menu_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CatalogReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menu_catalog_reloads_total",
				Help: "Catalog reloads by status (changed, unchanged, error).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.IntentsTotal,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexDocuments,
		m.IndexTerms,
		m.SynonymsLearnedTotal,
		m.SynonymPersistErrorTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CatalogReloadsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
