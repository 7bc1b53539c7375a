package health

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// healthMetrics holds Prometheus metrics for readiness checks.
type healthMetrics struct {
	checksTotal    *prometheus.CounterVec
	checkDuration  *prometheus.HistogramVec
	checkStatus    *prometheus.GaugeVec
	readinessState prometheus.Gauge
}

var (
	healthMetricsInstance *healthMetrics
	healthMetricsOnce     sync.Once
)

func getHealthMetrics() *healthMetrics {
	healthMetricsOnce.Do(func() {
		healthMetricsInstance = &healthMetrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "velox",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of readiness checks performed",
				},
				[]string{"check", "status"},
			),
			checkDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "velox",
					Subsystem: "health",
					Name:      "check_duration_seconds",
					Help:      "Readiness check duration in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"check"},
			),
			checkStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Latest readiness check result (1=healthy, 0.5=degraded, 0=unhealthy)",
				},
				[]string{"check"},
			),
			readinessState: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "velox",
					Subsystem: "health",
					Name:      "ready",
					Help:      "Aggregated readiness (1=healthy, 0.5=degraded, 0=unhealthy)",
				},
			),
		}
	})
	return healthMetricsInstance
}

// observe records one check execution.
func (m *healthMetrics) observe(check string, status Status, elapsed time.Duration) {
	m.checksTotal.WithLabelValues(check, string(status)).Inc()
	m.checkDuration.WithLabelValues(check).Observe(elapsed.Seconds())
	m.checkStatus.WithLabelValues(check).Set(statusValue(status))
}

// readiness records the aggregated readiness state.
func (m *healthMetrics) readiness(status Status) {
	m.readinessState.Set(statusValue(status))
}

func statusValue(status Status) float64 {
	switch status {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 0.5
	default:
		return 0
	}
}
