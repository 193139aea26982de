package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talksy_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talksy_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Fan-out metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talksy_events_published_total",
			Help: "Envelopes published to the bus",
		},
		[]string{"type"},
	)

	EventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talksy_events_received_total",
			Help: "Envelopes received from the bus subscription",
		},
	)

	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talksy_events_malformed_total",
			Help: "Bus payloads dropped because they could not be decoded",
		},
	)

	LocalDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talksy_local_deliveries_total",
			Help: "Envelopes delivered to locally connected sessions",
		},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talksy_dropped_deliveries_total",
			Help: "Per-recipient deliveries dropped (slow or closed session)",
		},
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talksy_active_sessions",
			Help: "Currently connected websocket sessions",
		},
	)

	// AI metrics
	AIRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talksy_ai_requests_total",
			Help: "AI reply requests started",
		},
	)

	AIFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talksy_ai_failures_total",
			Help: "AI reply requests that ended in an error_message",
		},
		[]string{"status"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talksy_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
