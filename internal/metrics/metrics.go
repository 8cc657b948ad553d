// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route pattern, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelnest_http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelnest_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPActiveRequests is the number of requests currently in flight.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelnest_http_active_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// EngagementActions counts like and dislike toggles by resulting state.
	EngagementActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelnest_engagement_actions_total",
			Help: "Like and dislike toggles by action and resulting state",
		},
		[]string{"action", "result"},
	)

	// CommentActions counts comment mutations.
	CommentActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelnest_comment_actions_total",
			Help: "Comment mutations by action",
		},
		[]string{"action"},
	)

	// UploadBytes records the size of accepted uploads.
	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelnest_upload_bytes",
			Help:    "Size of accepted video uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(256*1024, 2, 9),
		},
	)

	// Uploads counts upload attempts by outcome.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelnest_uploads_total",
			Help: "Video uploads by outcome",
		},
		[]string{"outcome"},
	)

	// ReaperDeletions counts background blob deletions by outcome.
	ReaperDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelnest_reaper_deletions_total",
			Help: "Background video blob deletions by outcome",
		},
		[]string{"outcome"},
	)

	// ReaperQueueDepth is the number of blob deletions waiting for a worker.
	ReaperQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelnest_reaper_queue_depth",
			Help: "Video blob deletions waiting in the reaper queue",
		},
	)
)

// RecordHTTPRequest observes one completed request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

// RecordEngagement counts a like or dislike toggle. active reports whether the
// user ended up holding the reaction.
func RecordEngagement(action string, active bool) {
	result := "cleared"
	if active {
		result = "set"
	}
	EngagementActions.WithLabelValues(action, result).Inc()
}

// RecordComment counts a comment add, edit or delete.
func RecordComment(action string) {
	CommentActions.WithLabelValues(action).Inc()
}

// RecordUpload counts an upload outcome and, on success, its size.
func RecordUpload(outcome string, size int64) {
	Uploads.WithLabelValues(outcome).Inc()
	if outcome == "success" && size > 0 {
		UploadBytes.Observe(float64(size))
	}
}

// RecordReaperDeletion counts a background deletion outcome.
func RecordReaperDeletion(err error) {
	if err != nil {
		ReaperDeletions.WithLabelValues("error").Inc()
		return
	}
	ReaperDeletions.WithLabelValues("success").Inc()
}
