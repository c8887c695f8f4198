package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics shared by the HTTP layer.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	ProfilesCreated prometheus.Counter
}

// New creates and registers all shared metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsdesk_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsdesk_profiles_created_total",
			Help: "Total number of profiles created on first sign-in.",
		}),
	}
}
