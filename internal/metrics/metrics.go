// Package metrics holds the Prometheus collectors of the knowledge base.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "regkb"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	ImportsTotal          *prometheus.CounterVec
	ImportDuration        prometheus.Histogram
	VersionOutcomesTotal  *prometheus.CounterVec
	DiffSimilarity        prometheus.Histogram
	SearchQueriesTotal    prometheus.Counter
	SearchDuration        prometheus.Histogram
	SearchResultsTotal    prometheus.Counter
	RankerFailuresTotal   *prometheus.CounterVec
	DocumentsIndexedTotal prometheus.Counter
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New registers every collector on a private registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ImportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imported files by outcome",
		}, []string{"status"}),
		ImportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of a single file import in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		VersionOutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_outcomes_total",
			Help:      "Version resolution outcomes",
		}, []string{"outcome"}),
		DiffSimilarity: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "version_diff_similarity",
			Help:      "Similarity ratio between consecutive document versions",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		SearchQueriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total number of search queries",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search queries in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SearchResultsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total number of search results returned",
		}),
		RankerFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_ranker_failures_total",
			Help:      "Ranker failures skipped during hybrid search",
		}, []string{"ranker"}),
		DocumentsIndexedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Documents embedded or pushed to the lexical index",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordImport(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ImportsTotal.WithLabelValues(status).Inc()
	m.ImportDuration.Observe(duration.Seconds())
}

// RecordVersionOutcome counts a resolution; similarity is observed when known.
func (m *Metrics) RecordVersionOutcome(outcome string, similarity *float64) {
	if m == nil {
		return
	}
	m.VersionOutcomesTotal.WithLabelValues(outcome).Inc()
	if similarity != nil {
		m.DiffSimilarity.Observe(*similarity)
	}
}

func (m *Metrics) RecordSearch(results int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.Inc()
	m.SearchResultsTotal.Add(float64(results))
	m.SearchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRankerFailure(ranker string) {
	if m == nil {
		return
	}
	m.RankerFailuresTotal.WithLabelValues(ranker).Inc()
}

func (m *Metrics) RecordIndexed(n int) {
	if m == nil {
		return
	}
	m.DocumentsIndexedTotal.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
