package policy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// policyMetrics holds Prometheus metrics for rule evaluation.
type policyMetrics struct {
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	compileErrors      prometheus.Counter
	rules              prometheus.Gauge
}

var (
	policyMetricsInstance *policyMetrics
	policyMetricsOnce     sync.Once
)

func getPolicyMetrics() *policyMetrics {
	policyMetricsOnce.Do(func() {
		policyMetricsInstance = newPolicyMetrics()
	})
	return policyMetricsInstance
}

func newPolicyMetrics() *policyMetrics {
	return &policyMetrics{
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "policy",
				Name:      "evaluations_total",
				Help:      "Total number of upload policy decisions by rule and outcome",
			},
			[]string{"rule", "decision"},
		),
		evaluationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "velox",
				Subsystem: "policy",
				Name:      "evaluation_duration_seconds",
				Help:      "Upload policy evaluation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .025, .05, .1},
			},
		),
		compileErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "velox",
				Subsystem: "policy",
				Name:      "compile_errors_total",
				Help:      "Total number of rule expressions that failed to compile",
			},
		),
		rules: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "velox",
				Subsystem: "policy",
				Name:      "rules",
				Help:      "Number of active upload policy rules",
			},
		),
	}
}
