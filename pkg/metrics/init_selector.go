package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSelectorMetrics() {
	r.SelectorRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_selector_runs_total",
			Help: "Path selection runs, by outcome (selected, unreachable)",
		},
		[]string{"outcome"},
	)

	r.SelectorDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rcp_selector_duration_seconds",
			Help:    "Path selection duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.SelectorCandidatesRanked = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rcp_selector_candidates_ranked",
			Help:    "Candidate paths ranked per selection run",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)
}
