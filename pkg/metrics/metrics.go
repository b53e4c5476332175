package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Broadcast-core instrumentation.
var (
	// WSConnections tracks currently open websocket sessions.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Open websocket connections.",
	})

	// EventsSent counts outbound events by event name.
	EventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_sent_total",
		Help: "Outbound events delivered to connections.",
	}, []string{"event"})

	MessagesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_saved_total",
		Help: "Messages persisted to the store.",
	})

	MessageSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_message_save_failures_total",
		Help: "Message persistence failures (broadcast still delivered).",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
