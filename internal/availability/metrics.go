package availability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the availability cache.
type Metrics struct {
	lookupsTotal          *prometheus.CounterVec
	upstreamCallsTotal    prometheus.Counter
	upstreamFailuresTotal prometheus.Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton availability metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	return &Metrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_availability_lookups_total",
				Help: "Total number of availability cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
		upstreamCallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_availability_upstream_calls_total",
				Help: "Total number of successful upstream scheduling calls.",
			},
		),
		upstreamFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_availability_upstream_failures_total",
				Help: "Total number of upstream scheduling fetches that exhausted retries.",
			},
		),
	}
}

// MustRegister registers all availability metrics with the given
// registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.lookupsTotal,
		m.upstreamCallsTotal,
		m.upstreamFailuresTotal,
	)
}

// Init pre-initializes metric label combinations so they appear in
// scrapes before the first lookup.
func (m *Metrics) Init() {
	m.lookupsTotal.WithLabelValues("hit")
	m.lookupsTotal.WithLabelValues("miss")
}

// RecordHit records a cache hit.
func (m *Metrics) RecordHit() {
	m.lookupsTotal.WithLabelValues("hit").Inc()
}

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss() {
	m.lookupsTotal.WithLabelValues("miss").Inc()
}

// RecordUpstreamCall records a successful upstream fetch.
func (m *Metrics) RecordUpstreamCall() {
	m.upstreamCallsTotal.Inc()
}

// RecordUpstreamFailure records an upstream fetch that exhausted
// retries.
func (m *Metrics) RecordUpstreamFailure() {
	m.upstreamFailuresTotal.Inc()
}
