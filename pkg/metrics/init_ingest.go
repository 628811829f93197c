package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.IngestEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_ingest_events_total",
			Help: "Total events processed by the ingestor, by type and status",
		},
		[]string{"type", "status"},
	)

	r.IngestDedupHitsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_ingest_dedup_hits_total",
			Help: "Events discarded as duplicates of already-applied state",
		},
	)

	r.IngestConflictsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_ingest_conflicts_total",
			Help: "Mutation commits retried after an optimistic concurrency conflict",
		},
	)

	r.IngestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcp_ingest_duration_seconds",
			Help:    "Per-event ingest duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"type"},
	)

	r.IngestQueueDepth = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rcp_ingest_queue_depth",
			Help: "Pending events per peer session queue",
		},
		[]string{"peer"},
	)
}
