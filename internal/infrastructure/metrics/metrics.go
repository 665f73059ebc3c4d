package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Casescribe Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casescribe",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casescribe",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Presign URL duration
	PresignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "casescribe",
			Subsystem: "api",
			Name:      "presign_duration_seconds",
			Help:      "Presigned URL generation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Work items dispatched onto the transcription queue
	WorkItemsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casescribe",
			Subsystem: "dispatcher",
			Name:      "work_items_total",
			Help:      "Total work items dispatched",
		},
		[]string{"status"},
	)

	// Transcription outcomes
	TranscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casescribe",
			Subsystem: "worker",
			Name:      "transcriptions_total",
			Help:      "Total transcription outcomes",
		},
		[]string{"outcome"},
	)

	// Transcription duration from dequeue to terminal state
	TranscriptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "casescribe",
			Subsystem: "worker",
			Name:      "transcription_duration_seconds",
			Help:      "Work item processing duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Engine poll attempts per job
	EnginePollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "casescribe",
			Subsystem: "worker",
			Name:      "engine_poll_attempts",
			Help:      "Engine poll attempts per transcription job",
			Buckets:   []float64{1, 2, 5, 10, 20, 30},
		},
	)

	// Notifications published to the broker
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casescribe",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total notifications published",
		},
		[]string{"event", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordPresign records presigned URL generation
func RecordPresign(durationSec float64) {
	PresignDuration.Observe(durationSec)
}

// RecordDispatch records a dispatched work item
func RecordDispatch(status string) {
	WorkItemsDispatched.WithLabelValues(status).Inc()
}

// RecordTranscription records one work item outcome
func RecordTranscription(outcome string, durationSec float64) {
	TranscriptionsTotal.WithLabelValues(outcome).Inc()
	TranscriptionDuration.Observe(durationSec)
}

// RecordNotification records a broker publish
func RecordNotification(event, status string) {
	NotificationsTotal.WithLabelValues(event, status).Inc()
}
