package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster_feed"

// Metrics holds the Prometheus counters, histograms, and gauges for the feed pipeline.
type Metrics struct {
	// Provider fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,timeout}
	FetchDuration *prometheus.HistogramVec // labels: provider

	// Cache metrics.
	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss,stale,corrupt,fallback}
	Refreshes        *prometheus.CounterVec // labels: outcome={success,failure}
	CacheWriteErrors prometheus.Counter

	EventsHeld      *prometheus.GaugeVec // labels: type={disaster,earthquake}
	LastRefreshTime prometheus.Gauge

	PublishErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Provider fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by result.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Failed writes of a refreshed dataset to the cache store.",
		}),
		EventsHeld: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_held",
			Help:      "Events in the dataset currently served, by type.",
		}, []string{"type"}),
		LastRefreshTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time the served dataset was fetched.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publishes of refreshed events.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.Refreshes,
		m.CacheWriteErrors,
		m.EventsHeld,
		m.LastRefreshTime,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
