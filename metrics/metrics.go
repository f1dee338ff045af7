// Package metrics exports Prometheus metrics for the event counter API.
//
// HTTP metrics live on the default registry and are filled by the Metrics
// middleware:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - rate_limiter_active_buckets: Gauge of per-client token buckets still in the
//     idle-expiry cache
//
// Counter registry metrics go through a Sink, see PrometheusSink.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	// RateLimiterActiveBuckets rises when a new client gets a bucket and falls
	// when an idle bucket expires from the cache
	RateLimiterActiveBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_active_buckets",
			Help: "Per-client token buckets currently cached; a bucket is dropped after its client idles past the bucket TTL",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterActiveBuckets)
}
