package ratelimit

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for rate limiting.
type Metrics struct {
	decisionsTotal   *prometheus.CounterVec
	storeErrorsTotal prometheus.Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton rate limit metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	return &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ratelimit_decisions_total",
				Help: "Total number of rate limit decisions by outcome.",
			},
			[]string{"outcome"},
		),
		storeErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_ratelimit_store_errors_total",
				Help: "Total number of counter store failures.",
			},
		),
	}
}

// MustRegister registers all rate limit metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.decisionsTotal,
		m.storeErrorsTotal,
	)
}

// Init pre-initializes metric label combinations so they appear in
// scrapes before the first decision.
func (m *Metrics) Init() {
	m.decisionsTotal.WithLabelValues("allowed")
	m.decisionsTotal.WithLabelValues("rejected")
}

// RecordDecision records a rate limit decision.
func (m *Metrics) RecordDecision(allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.decisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreError records a counter store failure.
func (m *Metrics) RecordStoreError() {
	m.storeErrorsTotal.Inc()
}
