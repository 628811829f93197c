package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFeedMetrics() {
	r.FeedMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_feed_messages_total",
			Help: "Total feed messages received, by message type",
		},
		[]string{"type"},
	)

	r.FeedBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "rcp_feed_bytes_total",
			Help: "Total bytes received from upstream feeds",
		},
	)

	r.FeedMalformedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcp_feed_malformed_total",
			Help: "Feed messages dropped as malformed, by reason",
		},
		[]string{"reason"},
	)

	r.FeedSessionsConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "rcp_feed_sessions_connected",
			Help: "Number of currently connected feed sessions",
		},
	)

	r.FeedDecodeDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rcp_feed_decode_duration_seconds",
			Help:    "Feed message decode duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
	)
}
