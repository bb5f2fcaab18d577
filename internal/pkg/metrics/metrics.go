// Package metrics holds the Prometheus collectors shared by the gateway and the stats worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequests counts requests by method, route pattern, and status code
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration records request latency by method and route pattern
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPInflight gauges requests currently being served
	HTTPInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// ReviewWrites counts accepted review mutations by operation and persistence
	ReviewWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_writes_total",
			Help: "Accepted review mutations, split by whether the remote API persisted them.",
		},
		[]string{"operation", "persistence"},
	)

	// RemoteRequests counts remote API calls by endpoint and outcome
	RemoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_requests_total",
			Help: "Calls to the remote review and catalog APIs.",
		},
		[]string{"api", "method", "outcome"},
	)

	// StatsClamps counts histogram updates that would have gone negative
	StatsClamps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_clamps_total",
			Help: "Rating distribution updates clamped at zero.",
		},
	)

	// ActiveSessions gauges the number of live review sessions
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_sessions_active",
			Help: "Number of review sessions held by the gateway.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		HTTPInflight,
		ReviewWrites,
		RemoteRequests,
		StatsClamps,
		ActiveSessions,
	)
}
