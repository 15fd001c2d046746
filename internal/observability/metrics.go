// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	MessagesReceived *prometheus.CounterVec
	Reconnects       *prometheus.CounterVec
	HighestSlotSeen  prometheus.Gauge

	// Classification metrics
	EventsClassified     *prometheus.CounterVec
	ClassificationErrors prometheus.Counter

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter
	RateLimitHits        prometheus.Counter
	QueueDepth           prometheus.Gauge

	// Stats metrics
	WhaleProfiles prometheus.Gauge

	// Latency metrics
	FetchLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whale_watch"
	}

	return &Metrics{
		// Stream metrics
		MessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_received_total",
			Help:      "Total number of stream messages received by source",
		}, []string{"source"}),
		Reconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts by source",
		}, []string{"source"}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		// Classification metrics
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "events_total",
			Help:      "Total number of events classified by kind",
		}, []string{"kind"}),
		ClassificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "errors_total",
			Help:      "Total number of instructions skipped on decode or resolution errors",
		}),

		// Notification metrics
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications delivered",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of notifications dropped",
		}),
		RateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of provider rate limit responses",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "queue_depth",
			Help:      "Current number of notifications waiting for delivery",
		}),

		// Stats metrics
		WhaleProfiles: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "whale_profiles",
			Help:      "Number of wallets currently tracked",
		}),

		// Latency metrics
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessage increments the messages received counter for a source.
func RecordMessage(source string) {
	DefaultMetrics.MessagesReceived.WithLabelValues(source).Inc()
}

// RecordReconnect increments the reconnect counter for a source.
func RecordReconnect(source string) {
	DefaultMetrics.Reconnects.WithLabelValues(source).Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordEvent increments the classified events counter for a kind.
func RecordEvent(kind string) {
	DefaultMetrics.EventsClassified.WithLabelValues(kind).Inc()
}

// RecordClassificationError increments the skipped instruction counter.
func RecordClassificationError() {
	DefaultMetrics.ClassificationErrors.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.FetchLatency.WithLabelValues(method).Observe(seconds)
}

// UpdateQueueDepth updates the notification queue depth gauge.
func UpdateQueueDepth(depth int64) {
	DefaultMetrics.QueueDepth.Set(float64(depth))
}

// RecordNotificationSent increments the delivered notifications counter.
func RecordNotificationSent() {
	DefaultMetrics.NotificationsSent.Inc()
}

// RecordNotificationDropped increments the dropped notifications counter.
func RecordNotificationDropped() {
	DefaultMetrics.NotificationsDropped.Inc()
}

// RecordRateLimitHit increments the rate limit counter.
func RecordRateLimitHit() {
	DefaultMetrics.RateLimitHits.Inc()
}

// UpdateWhaleProfiles updates the tracked wallet gauge.
func UpdateWhaleProfiles(n int) {
	DefaultMetrics.WhaleProfiles.Set(float64(n))
}

// RecordDBError records a database query error.
func RecordDBError(database, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
}
