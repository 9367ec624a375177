// Package metrics holds the Prometheus instruments of the analytics engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "faultline"

// Metrics holds Prometheus metrics for analysis runs, the report cache and
// the HTTP API.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	StageDuration   *prometheus.HistogramVec
	RecordsAnalyzed prometheus.Gauge
	RecordsExcluded prometheus.Gauge
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	StoreErrors     prometheus.Counter
	PolicyReloads   *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to stay isolated from the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Total number of analysis runs by outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_run_duration_seconds",
			Help:      "Duration of a full analysis run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_stage_duration_seconds",
			Help:      "Duration of each analysis stage",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		RecordsAnalyzed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_analyzed",
			Help:      "Number of records in the last analyzed snapshot",
		}),
		RecordsExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_excluded",
			Help:      "Number of records excluded from the last analyzed snapshot",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_hits_total",
			Help:      "Total number of report cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_misses_total",
			Help:      "Total number of report cache misses",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_evictions_total",
			Help:      "Total number of reports evicted from the cache",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed store reads",
		}),
		PolicyReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_reloads_total",
			Help:      "Total number of policy reloads by outcome",
		}, []string{"outcome"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.RecordsAnalyzed,
		m.RecordsExcluded,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.StoreErrors,
		m.PolicyReloads,
		m.RequestsTotal,
		m.RequestDuration,
	)
	return m
}

// Nop returns metrics registered with a private registry, for callers that
// do not export them.
func Nop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
