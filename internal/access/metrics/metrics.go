package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the access module.
type Metrics struct {
	// Check outcomes by deny reason ("" on allow)
	CheckOutcome *prometheus.CounterVec

	// Overall check latency including session resolution and the profile gate
	CheckLatency prometheus.Histogram

	// Session lookups that needed the settle-and-retry path
	SessionRetries prometheus.Counter
}

// New creates a Metrics instance with all access module metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsdesk_access_checks_total",
			Help: "Total access check outcomes by result and deny reason",
		}, []string{"result", "reason"}), // result: "allow" or "deny"

		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "opsdesk_access_check_duration_seconds",
			Help:    "Duration of a full access check including session resolution",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		SessionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsdesk_access_session_retries_total",
			Help: "Session lookups that waited for the settle delay and requeried",
		}),
	}
}

// IncrementOutcome records a check outcome.
func (m *Metrics) IncrementOutcome(allowed bool, reason string) {
	if m != nil {
		result := "deny"
		if allowed {
			result = "allow"
		}
		m.CheckOutcome.WithLabelValues(result, reason).Inc()
	}
}

// ObserveCheckLatency records the total check duration.
func (m *Metrics) ObserveCheckLatency(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}

// IncrementSessionRetry records one settle-and-retry pass.
func (m *Metrics) IncrementSessionRetry() {
	if m != nil {
		m.SessionRetries.Inc()
	}
}
