package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// middlewareMetrics holds Prometheus metrics for the built-in
// middlewares.
type middlewareMetrics struct {
	rateLimitAllowed  *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec

	breakerRequests    *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

var (
	middlewareMetricsInstance *middlewareMetrics
	middlewareMetricsOnce     sync.Once
)

func getMiddlewareMetrics() *middlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetricsInstance = newMiddlewareMetrics()
	})
	return middlewareMetricsInstance
}

func newMiddlewareMetrics() *middlewareMetrics {
	return &middlewareMetrics{
		rateLimitAllowed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "middleware",
				Name:      "rate_limit_allowed_total",
				Help:      "Total number of requests allowed by the rate limiter",
			},
			[]string{"route"},
		),
		rateLimitRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		breakerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "middleware",
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of requests through the circuit breaker by state",
			},
			[]string{"name", "state"},
		),
		breakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "middleware",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
	}
}
