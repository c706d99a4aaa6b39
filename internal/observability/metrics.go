// Package observability provides application metrics, repository logging and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionToggles counts like, bookmark and reaction mutations by outcome.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_reaction_toggles_total",
		Help: "Total number of reaction mutations by kind and result",
	}, []string{"kind", "result"})

	// CommentOps counts comment writes by operation.
	CommentOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_comments_total",
		Help: "Total number of comment writes by operation",
	}, []string{"op"})

	// CacheRequests counts cache-aside lookups by result (hit, miss, error).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_cache_requests_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogme_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// UploadBytes counts bytes streamed to object storage by kind (image, video, thumbnail).
	UploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_upload_bytes_total",
		Help: "Total number of bytes uploaded to object storage",
	}, []string{"kind"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordReaction increments the reaction mutation counter.
func RecordReaction(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ReactionToggles.WithLabelValues(kind, result).Inc()
}
