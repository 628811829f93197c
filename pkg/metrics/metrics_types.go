package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the control plane
type Registry struct {
	// Feed Metrics
	FeedMessagesTotal     *prometheus.CounterVec
	FeedBytesTotal        prometheus.Counter
	FeedMalformedTotal    *prometheus.CounterVec
	FeedSessionsConnected prometheus.Gauge
	FeedDecodeDuration    prometheus.Histogram

	// Ingest Metrics
	IngestEventsTotal    *prometheus.CounterVec
	IngestDedupHitsTotal prometheus.Counter
	IngestConflictsTotal prometheus.Counter
	IngestDuration       *prometheus.HistogramVec
	IngestQueueDepth     *prometheus.GaugeVec

	// Graph Metrics
	GraphNodesTotal       *prometheus.GaugeVec
	GraphEdgesTotal       *prometheus.GaugeVec
	GraphVersion          prometheus.Gauge
	GraphMutationsTotal   *prometheus.CounterVec
	GraphMutationDuration *prometheus.HistogramVec
	GraphSnapshotsTotal   prometheus.Counter
	GraphEventsDropped    prometheus.Counter

	// Selector Metrics
	SelectorRunsTotal        *prometheus.CounterVec
	SelectorDuration         prometheus.Histogram
	SelectorCandidatesRanked prometheus.Histogram

	// Reconciler Metrics
	FibOperationsTotal    *prometheus.CounterVec
	FibApplyDuration      *prometheus.HistogramVec
	FibRetriesTotal       prometheus.Counter
	FibFailedPrefixes     prometheus.Gauge
	FibInstalledPrefixes  prometheus.Gauge
	FibSupersededRuns     prometheus.Counter
	FibConvergenceLatency prometheus.Histogram

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initFeedMetrics()
	r.initIngestMetrics()
	r.initGraphMetrics()
	r.initSelectorMetrics()
	r.initFibMetrics()
	r.initHTTPMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
