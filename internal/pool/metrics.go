package pool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// poolMetrics contains Prometheus metrics for the worker pool.
type poolMetrics struct {
	tasksSubmitted *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec
	tasksRejected  *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	workers        prometheus.Gauge
	workerCrashes  prometheus.Counter
	workerRestarts prometheus.Counter
	lateResults    prometheus.Counter
	healthy        prometheus.Gauge
}

var (
	poolMetricsInstance *poolMetrics
	poolMetricsOnce     sync.Once
)

// getPoolMetrics returns the singleton pool metrics instance.
func getPoolMetrics() *poolMetrics {
	poolMetricsOnce.Do(func() {
		poolMetricsInstance = &poolMetrics{
			tasksSubmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "tasks_submitted_total",
					Help:      "Total number of tasks accepted into the pool",
				},
				[]string{"kind"},
			),
			tasksCompleted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "tasks_completed_total",
					Help:      "Total number of task results delivered to callers",
				},
				[]string{"kind", "status"},
			),
			tasksRejected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "tasks_rejected_total",
					Help:      "Total number of tasks rejected without execution",
				},
				[]string{"reason"},
			),
			taskDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "task_duration_seconds",
					Help:      "Task execution duration in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"kind"},
			),
			queueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "queue_depth",
					Help:      "Current number of tasks waiting in the queue",
				},
			),
			workers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "workers",
					Help:      "Current number of workers in the roster",
				},
			),
			workerCrashes: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "worker_crashes_total",
					Help:      "Total number of worker crashes recovered by the pool",
				},
			),
			workerRestarts: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "worker_restarts_total",
					Help:      "Total number of replacement workers spawned",
				},
			),
			lateResults: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "late_results_dropped_total",
					Help:      "Total number of worker responses dropped because no pending job matched",
				},
			),
			healthy: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "pool",
					Name:      "healthy",
					Help:      "Whether the last health check found all workers healthy (1) or not (0)",
				},
			),
		}
	})
	return poolMetricsInstance
}
