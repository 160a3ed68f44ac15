// Package metrics holds the Prometheus instruments shared by the store,
// the resolver, the session manager and the HTTP host.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal counts match computations by outcome.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "texpand_lookups_total",
			Help: "Keyword lookups by match outcome",
		},
		[]string{"outcome"},
	)

	// CommitsTotal counts resolve-session commits.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "texpand_commits_total",
			Help: "Resolve session commits by result",
		},
		[]string{"result"},
	)

	// AppendsTotal counts appendEntry attempts by result: ok, validation,
	// duplicate, parse or io.
	AppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "texpand_appends_total",
			Help: "Template entry appends by result",
		},
		[]string{"result"},
	)

	// UnitsSkippedTotal counts template files skipped during a scan.
	UnitsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "texpand_units_skipped_total",
			Help: "Template units skipped because they could not be read or parsed",
		},
	)

	// SessionsActive tracks open interaction sessions.
	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "texpand_sessions_active",
			Help: "Open interaction sessions",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal counts requests served by the host.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "texpand_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "texpand_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "route"},
	)
)
