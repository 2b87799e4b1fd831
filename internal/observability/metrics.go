package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyhouse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records statement latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyhouse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of open sockets per hub.
	WebSocketConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storyhouse_websocket_connections",
		Help: "Number of open WebSocket connections per hub",
	}, []string{"hub"})

	// WebSocketBackpressureDrops counts messages dropped because a client fell behind.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyhouse_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// SocialToggles counts follow, like and bookmark toggles by resulting state.
	SocialToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyhouse_social_toggles_total",
		Help: "Social graph toggles by kind and resulting state",
	}, []string{"kind", "state"})

	// IngestionOutcomes counts generator calls by operation and outcome (ok or fallback).
	IngestionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyhouse_ingestion_outcomes_total",
		Help: "Content ingestion calls by operation and outcome",
	}, []string{"operation", "outcome"})

	// IngestionLatency records generator latency by operation.
	IngestionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyhouse_ingestion_latency_seconds",
		Help:    "Generative model call latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"operation"})

	// DeletionSteps counts account deletion steps by name and outcome.
	DeletionSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyhouse_account_deletion_steps_total",
		Help: "Account deletion steps by name and outcome",
	}, []string{"step", "outcome"})

	// SyncSubscriptions is the gauge of live collection subscriptions across sessions.
	SyncSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storyhouse_sync_subscriptions",
		Help: "Live data-sync subscriptions by collection",
	}, []string{"collection"})
)

// ObserveIngestion records one generator call.
func ObserveIngestion(operation string, fallback bool, start time.Time) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	IngestionOutcomes.WithLabelValues(operation, outcome).Inc()
	IngestionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
