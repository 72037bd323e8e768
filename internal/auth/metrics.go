package auth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authentication.
type Metrics struct {
	authTotal    *prometheus.CounterVec
	authDuration *prometheus.HistogramVec
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetMetrics returns the singleton auth metrics instance.
func GetMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = newMetrics("gateway")
	})
	return sharedMetrics
}

func newMetrics(namespace string) *Metrics {
	return &Metrics{
		authTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "validations_total",
				Help:      "Total number of API key validations",
			},
			[]string{"status", "reason"},
		),
		authDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "validation_duration_seconds",
				Help:      "API key validation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}
}

// MustRegister registers all auth metric collectors with the given
// registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.authTotal, m.authDuration)
}

// Init pre-initializes common label combinations with zero values so
// the series appear in /metrics output immediately after startup.
func (m *Metrics) Init() {
	for _, reason := range []string{"valid", "empty_key", "not_found", "revoked", "store_error"} {
		m.authTotal.WithLabelValues("success", reason)
		m.authTotal.WithLabelValues("error", reason)
	}
	m.authDuration.WithLabelValues("success")
	m.authDuration.WithLabelValues("error")
}

// RecordValidation records one validation outcome.
func (m *Metrics) RecordValidation(status, reason string, duration time.Duration) {
	m.authTotal.WithLabelValues(status, reason).Inc()
	m.authDuration.WithLabelValues(status).Observe(duration.Seconds())
}
