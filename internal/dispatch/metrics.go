package dispatch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics contains Prometheus metrics for the dispatcher.
type dispatchMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	activeRequests  prometheus.Gauge
	panicsRecovered prometheus.Counter
}

var (
	dispatchMetricsInstance *dispatchMetrics
	dispatchMetricsOnce     sync.Once
)

// getDispatchMetrics returns the singleton dispatcher metrics instance.
func getDispatchMetrics() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetricsInstance = &dispatchMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "dispatch",
					Name:      "requests_total",
					Help:      "Total number of dispatched requests",
				},
				[]string{"method", "status"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "velox",
					Subsystem: "dispatch",
					Name:      "request_duration_seconds",
					Help:      "Request dispatch duration in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"method"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "dispatch",
					Name:      "errors_total",
					Help:      "Total number of error responses by envelope code",
				},
				[]string{"code"},
			),
			activeRequests: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "dispatch",
					Name:      "active_requests",
					Help:      "Number of requests currently being dispatched",
				},
			),
			panicsRecovered: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "dispatch",
					Name:      "panics_recovered_total",
					Help:      "Total number of panics recovered from handlers and middleware",
				},
			),
		}
	})
	return dispatchMetricsInstance
}
