package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// matchCacheMetrics contains Prometheus metrics for the match cache.
type matchCacheMetrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheSize      prometheus.Gauge
}

var (
	matchCacheMetricsInstance *matchCacheMetrics
	matchCacheMetricsOnce     sync.Once
)

// getMatchCacheMetrics returns the singleton match cache metrics instance.
func getMatchCacheMetrics() *matchCacheMetrics {
	matchCacheMetricsOnce.Do(func() {
		matchCacheMetricsInstance = &matchCacheMetrics{
			cacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "router",
					Name:      "match_cache_hits_total",
					Help:      "Total number of match cache hits",
				},
			),
			cacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "router",
					Name:      "match_cache_misses_total",
					Help:      "Total number of match cache misses",
				},
			),
			cacheEvictions: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "router",
					Name:      "match_cache_evictions_total",
					Help:      "Total number of match cache evictions",
				},
			),
			cacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "router",
					Name:      "match_cache_size",
					Help:      "Current number of entries in the match cache",
				},
			),
		}
	})
	return matchCacheMetricsInstance
}
