// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CollaboratorDuration tracks calls to the document service.
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_request_duration_seconds",
			Help:    "Document service call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"operation", "status"},
	)

	// SubmitsTotal tracks arbiter outcomes.
	SubmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submits_total",
			Help: "Total submissions by outcome",
		},
		[]string{"outcome"},
	)

	// ReconciliationsTotal tracks provisional to persisted id swaps.
	ReconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thread_reconciliations_total",
			Help: "Total provisional thread ids replaced by persisted ids",
		},
	)

	// SessionsActive tracks live per-user sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of live user sessions",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// EventsPublished tracks store events forwarded to NATS.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_events_published_total",
			Help: "Store events published to NATS",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCollaboratorCall records metrics for a document service call.
func RecordCollaboratorCall(operation string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CollaboratorDuration.WithLabelValues(operation, status).Observe(duration)
}

// RecordSubmit records the outcome of a submission.
func RecordSubmit(outcome string) {
	SubmitsTotal.WithLabelValues(outcome).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
