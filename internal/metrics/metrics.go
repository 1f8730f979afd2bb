package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supportrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "supportrelay_live_connections",
			Help: "Currently open relay connections",
		},
	)

	MessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportrelay_messages_relayed_total",
			Help: "Messages accepted and fanned out",
		},
		[]string{"author_role"},
	)

	FanoutDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportrelay_fanout_deliveries_total",
			Help: "Room deliveries produced by the router",
		},
		[]string{"kind"}, // "message" or "activity"
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supportrelay_dropped_frames_total",
			Help: "Outbound frames dropped because a client was too slow",
		},
	)

	SendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportrelay_send_errors_total",
			Help: "Rejected send attempts",
		},
		[]string{"reason"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportrelay_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supportrelay_store_latency_seconds",
			Help:    "Document store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
	)
)
