package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordFeedMessage records a decoded feed message
func (r *Registry) RecordFeedMessage(msgType string, size int, decodeTime time.Duration) {
	r.FeedMessagesTotal.WithLabelValues(msgType).Inc()
	r.FeedBytesTotal.Add(float64(size))
	r.FeedDecodeDuration.Observe(decodeTime.Seconds())
}

// RecordMalformedEvent records a feed message dropped as malformed
func (r *Registry) RecordMalformedEvent(reason string) {
	r.FeedMalformedTotal.WithLabelValues(reason).Inc()
}

// RecordIngest records one processed event
func (r *Registry) RecordIngest(eventType, status string, duration time.Duration) {
	r.IngestEventsTotal.WithLabelValues(eventType, status).Inc()
	r.IngestDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordMutation records a graph mutation commit
func (r *Registry) RecordMutation(operation, status string, duration time.Duration) {
	r.GraphMutationsTotal.WithLabelValues(operation, status).Inc()
	r.GraphMutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSelection records a path selection run
func (r *Registry) RecordSelection(candidates int, duration time.Duration) {
	outcome := "selected"
	if candidates == 0 {
		outcome = "unreachable"
	}
	r.SelectorRunsTotal.WithLabelValues(outcome).Inc()
	r.SelectorDuration.Observe(duration.Seconds())
	r.SelectorCandidatesRanked.Observe(float64(candidates))
}

// RecordFibOperation records one applied FIB operation
func (r *Registry) RecordFibOperation(kind, status string, duration time.Duration) {
	r.FibOperationsTotal.WithLabelValues(kind, status).Inc()
	r.FibApplyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// UpdateGraphSize sets node/edge gauges for one kind
func (r *Registry) UpdateGraphSize(kind string, nodes, edges int) {
	if nodes >= 0 {
		r.GraphNodesTotal.WithLabelValues(kind).Set(float64(nodes))
	}
	if edges >= 0 {
		r.GraphEdgesTotal.WithLabelValues(kind).Set(float64(edges))
	}
}

// UpdateSystemMetrics refreshes uptime and runtime gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}
