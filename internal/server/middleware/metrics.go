package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds Prometheus metrics for the HTTP surface.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	httpMetricsInstance *HTTPMetrics
	httpMetricsOnce     sync.Once
)

// GetHTTPMetrics returns the singleton HTTP metrics instance.
func GetHTTPMetrics() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetricsInstance = &HTTPMetrics{
			requestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "gateway_http_requests_total",
					Help: "Total number of HTTP requests by method, route, and status.",
				},
				[]string{"method", "route", "status"},
			),
			requestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "gateway_http_request_duration_seconds",
					Help:    "HTTP request latency by method and route.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})
	return httpMetricsInstance
}

// MustRegister registers all HTTP metrics with the given registry.
func (m *HTTPMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
	)
}

// Metrics returns a middleware that records request counts and
// latencies. Unmatched routes are recorded under their raw path.
func Metrics(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		m.requestsTotal.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(
			c.Request.Method, route,
		).Observe(time.Since(start).Seconds())
	}
}
