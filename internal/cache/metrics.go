package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics contains Prometheus metrics for cache operations,
// labeled by backend.
type cacheMetrics struct {
	hits              *prometheus.CounterVec
	misses            *prometheus.CounterVec
	evictions         *prometheus.CounterVec
	size              *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
	errors            *prometheus.CounterVec
}

var (
	cacheMetricsInstance *cacheMetrics
	cacheMetricsOnce     sync.Once
)

// getCacheMetrics returns the singleton cache metrics instance.
func getCacheMetrics() *cacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInstance = &cacheMetrics{
			hits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "hits_total",
					Help:      "Total number of cache hits",
				},
				[]string{"backend"},
			),
			misses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "misses_total",
					Help:      "Total number of cache misses",
				},
				[]string{"backend"},
			),
			evictions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "evictions_total",
					Help:      "Total number of cache evictions",
				},
				[]string{"backend"},
			),
			size: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "size",
					Help:      "Current number of entries in the cache",
				},
				[]string{"backend"},
			),
			operationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "operation_duration_seconds",
					Help:      "Duration of cache operations",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1,
					},
				},
				[]string{"backend", "operation"},
			),
			errors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "cache",
					Name:      "errors_total",
					Help:      "Total number of cache backend errors",
				},
				[]string{"backend", "operation"},
			),
		}
	})
	return cacheMetricsInstance
}
