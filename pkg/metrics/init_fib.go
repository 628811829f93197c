package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFibMetrics() {
	r.FibOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_fib_operations_total",
			Help: "FIB operations applied, by kind and status",
		},
		[]string{"kind", "status"},
	)

	r.FibApplyDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcp_fib_apply_duration_seconds",
			Help:    "FIB apply call duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"kind"},
	)

	r.FibRetriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_fib_retries_total",
			Help: "FIB apply retries after transient failures",
		},
	)

	r.FibFailedPrefixes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "rcp_fib_failed_prefixes",
			Help: "Prefixes currently in the failed state",
		},
	)

	r.FibInstalledPrefixes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "rcp_fib_installed_prefixes",
			Help: "Prefixes currently installed in the FIB",
		},
	)

	r.FibSupersededRuns = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_fib_superseded_runs_total",
			Help: "Convergence runs superseded by newer changes before completion",
		},
	)

	r.FibConvergenceLatency = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rcp_fib_convergence_latency_seconds",
			Help:    "Latency from change event to FIB convergence per prefix",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)
}
