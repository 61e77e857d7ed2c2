package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waveline_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// NotificationsCreated counts notification create calls by type and outcome
	// (created|deduplicated).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waveline_notifications_created_total",
			Help: "Total number of notification create calls",
		},
		[]string{"type", "outcome"},
	)

	// ConnectedClients tracks the number of live WebSocket connections.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waveline_connected_clients",
			Help: "Number of live realtime connections",
		},
	)

	// PushesDropped counts payloads dropped because a client could not keep up.
	PushesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waveline_pushes_dropped_total",
			Help: "Total number of realtime payloads dropped due to backpressure",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waveline_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
