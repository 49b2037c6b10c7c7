package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytechat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytechat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytechat_active_sessions",
			Help: "Live websocket sessions joined to a room",
		},
	)

	HandshakesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytechat_handshakes_rejected_total",
			Help: "Connections closed before a session was created",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytechat_sessions_evicted_total",
			Help: "Sessions disconnected by the liveness supervisor",
		},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytechat_frames_dropped_total",
			Help: "Frames not delivered or not processed",
		},
		[]string{"reason"}, // "unparseable", "closed", "backlog"
	)

	// Business metrics
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytechat_messages_persisted_total",
			Help: "Messages newly written to the store",
		},
	)

	MessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytechat_messages_deduplicated_total",
			Help: "Sends resolved to an existing row by idempotency token",
		},
	)

	MessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytechat_messages_failed_total",
			Help: "Sends answered with an error frame",
		},
		[]string{"code"},
	)

	HistoryPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytechat_history_pages_total",
			Help: "History pages served",
		},
		[]string{"source"}, // "store" or "cache"
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytechat_store_latency_seconds",
			Help:    "Store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytechat_store_errors_total",
			Help: "Failed store operations",
		},
		[]string{"op"},
	)
)
