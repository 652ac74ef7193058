// Package metrics defines the Prometheus collectors for searches, builds and
// reloads, and exposes an HTTP handler for scraping.
//
// Every Observe method is safe to call on a nil *Metrics, so components can
// hold an optional observer without checking it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for wordfst.
type Metrics struct {
	SearchesTotal   *prometheus.CounterVec
	SearchLatency   prometheus.Histogram
	SearchResults   prometheus.Histogram
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	BuildsTotal     *prometheus.CounterVec
	BuildDuration   prometheus.Histogram
	ReloadsTotal    prometheus.Counter
	IndexKeys       prometheus.Gauge
	IPCRequestTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Tests pass their
// own prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfst_searches_total",
				Help: "Total searches by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordfst_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordfst_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 64},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordfst_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordfst_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfst_builds_total",
				Help: "Total index builds by status.",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordfst_build_duration_seconds",
				Help:    "Index build duration in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		ReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordfst_reloads_total",
				Help: "Total number of index reloads.",
			},
		),
		IndexKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordfst_index_keys",
				Help: "Number of keys in the open index.",
			},
		),
		IPCRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfst_ipc_requests_total",
				Help: "IPC requests by action.",
			},
			[]string{"action"},
		),
	}

	reg.MustRegister(
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResults,
		m.CacheHitsTotal,
		m.CacheMissTotal,
		m.BuildsTotal,
		m.BuildDuration,
		m.ReloadsTotal,
		m.IndexKeys,
		m.IPCRequestTotal,
	)
	return m
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(d time.Duration, results int, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.SearchesTotal.WithLabelValues("error").Inc()
		return
	case results == 0:
		m.SearchesTotal.WithLabelValues("zero_result").Inc()
	default:
		m.SearchesTotal.WithLabelValues("hit").Inc()
	}
	m.SearchLatency.Observe(d.Seconds())
	m.SearchResults.Observe(float64(results))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissTotal.Inc()
	}
}

// ObserveBuild records an index build.
func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BuildsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues("ok").Inc()
	m.BuildDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveIndex(keys uint64) {
	if m == nil {
		return
	}
	m.IndexKeys.Set(float64(keys))
}

func (m *Metrics) ObserveReload(keys uint64) {
	if m == nil {
		return
	}
	m.ReloadsTotal.Inc()
	m.IndexKeys.Set(float64(keys))
}

func (m *Metrics) ObserveRequest(action string) {
	if m == nil {
		return
	}
	m.IPCRequestTotal.WithLabelValues(action).Inc()
}
