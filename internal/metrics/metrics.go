// Package metrics exposes prometheus collectors for the exchange
// client. Collectors are package-level and registered once via
// Register; library code records through them unconditionally, which is
// a no-op cost when nothing scrapes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_requests_total",
			Help: "Total number of HTTP requests issued to the exchange",
		},
		[]string{"endpoint", "status"},
	)

	ThrottleBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_throttle_blocked_total",
			Help: "Total number of requests rejected locally by the ban prevention window",
		},
	)

	ThrottleArmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_throttle_armed_total",
			Help: "Total number of times a server throttling signal armed the ban prevention window",
		},
	)

	TransportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_transport_errors_total",
			Help: "Total number of transport-level request failures",
		},
		[]string{"kind"},
	)

	LimitUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_rate_limit_usage",
			Help: "Last known usage of each registered rate limit window",
		},
		[]string{"limit_id"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_request_duration_seconds",
			Help:    "Latency of exchange HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Register installs all collectors into the default registry. Call it
// at most once per process.
func Register() {
	prometheus.MustRegister(
		RequestsTotal,
		ThrottleBlockedTotal,
		ThrottleArmedTotal,
		TransportErrorsTotal,
		LimitUsage,
		RequestDuration,
	)
}
