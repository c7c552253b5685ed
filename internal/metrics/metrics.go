package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline and
// the API.
type Metrics struct {
	SyncRuns     *prometheus.CounterVec   // labels: feed={gdacs,eonet}, outcome={success,error,busy}
	SyncItems    *prometheus.CounterVec   // labels: feed, action={inserted,updated,processed,skipped}
	SyncDuration *prometheus.HistogramVec // labels: feed
	FeedFetches  *prometheus.CounterVec   // labels: feed, outcome={success,error}
	HTTPRequests *prometheus.CounterVec   // labels: method, path, status
}

// NewMetrics creates and registers all collectors with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "sync_runs_total",
			Help:      "Sync runs by feed and outcome.",
		}, []string{"feed", "outcome"}),
		SyncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "sync_items_total",
			Help:      "Feed items handled during sync, by action taken.",
		}, []string{"feed", "action"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disasterwatch",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fetch-transform-commit run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"feed"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "feed_fetches_total",
			Help:      "Upstream feed pulls by outcome.",
		}, []string{"feed", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "http_requests_total",
			Help:      "API requests by method, route and status.",
		}, []string{"method", "path", "status"}),
	}

	prometheus.MustRegister(
		m.SyncRuns,
		m.SyncItems,
		m.SyncDuration,
		m.FeedFetches,
		m.HTTPRequests,
	)

	return m
}

// The helpers below tolerate a nil receiver so callers that run without
// metrics (tests, one-shot CLI commands) need no special casing.

// RecordSyncRun counts one completed sync run
func (m *Metrics) RecordSyncRun(feed, outcome string) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(feed, outcome).Inc()
}

// RecordSyncItems counts feed items by the action taken on them
func (m *Metrics) RecordSyncItems(feed, action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SyncItems.WithLabelValues(feed, action).Add(float64(n))
}

// ObserveSyncDuration records the wall time of one sync run
func (m *Metrics) ObserveSyncDuration(feed string, seconds float64) {
	if m == nil {
		return
	}
	m.SyncDuration.WithLabelValues(feed).Observe(seconds)
}

// RecordFeedFetch counts one upstream pull
func (m *Metrics) RecordFeedFetch(feed, outcome string) {
	if m == nil {
		return
	}
	m.FeedFetches.WithLabelValues(feed, outcome).Inc()
}

// RecordHTTPRequest counts one API request
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
