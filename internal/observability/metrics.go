// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification outcomes recorded by NotificationsTotal.
const (
	NotificationCreated = "created"
	NotificationSkipped = "skipped"
	NotificationFailed  = "failed"
)

var (
	// NotificationsTotal counts emission attempts by outcome and kind.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appx_notifications_total",
		Help: "Notification emission attempts by outcome",
	}, []string{"result", "kind"})

	// NotificationPublishErrors counts realtime publish failures. The stored row is unaffected.
	NotificationPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "appx_notification_publish_errors_total",
		Help: "Total number of failed realtime notification publishes",
	})

	// MentionsTotal counts resolved mentions, split by whether a new row was recorded.
	MentionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appx_mentions_total",
		Help: "Mentions processed by outcome",
	}, []string{"result"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appx_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appx_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appx_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "appx_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appx_websocket_backpressure_drops_total",
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
