package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rcp_graph_nodes_total",
			Help: "Number of nodes in the graph, by kind",
		},
		[]string{"kind"},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rcp_graph_edges_total",
			Help: "Number of edges in the graph, by kind",
		},
		[]string{"kind"},
	)

	r.GraphVersion = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "rcp_graph_version",
			Help: "Current graph store version",
		},
	)

	r.GraphMutationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_graph_mutations_total",
			Help: "Committed graph mutations, by operation and status",
		},
		[]string{"operation", "status"},
	)

	r.GraphMutationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcp_graph_mutation_duration_seconds",
			Help:    "Graph mutation commit duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
		[]string{"operation"},
	)

	r.GraphSnapshotsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_graph_snapshots_total",
			Help: "Snapshots taken from the graph store",
		},
	)

	r.GraphEventsDropped = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_graph_events_dropped_total",
			Help: "Change events dropped on full subscriber buffers",
		},
	)
}
