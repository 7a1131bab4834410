// Package metrics exposes Prometheus collectors for the evaluation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Assistant run counters
	AssistantRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "assistant_runs_total",
			Help:      "Total assistant runs by terminal status",
		},
		[]string{"provider", "status"},
	)

	// Run duration histogram
	AssistantRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "assistant_run_duration_seconds",
			Help:      "Assistant run duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"provider"},
	)

	// File upload counters
	FileUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "file_uploads_total",
			Help:      "Total remote file uploads",
		},
		[]string{"status"},
	)

	// Queue depth gauge
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "queue_depth",
			Help:      "Background evaluation queue depth",
		},
	)

	// Background jobs counter
	BackgroundJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "background_jobs_total",
			Help:      "Total background evaluations processed",
		},
		[]string{"status"},
	)

	// Background job duration histogram
	BackgroundJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rfp",
			Subsystem: "backend",
			Name:      "background_job_duration_seconds",
			Help:      "Background evaluation duration in seconds",
			Buckets:   []float64{30, 60, 300, 600, 1800, 3600, 7200},
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordAssistantRun records one terminal assistant run.
func RecordAssistantRun(provider, status string, duration time.Duration) {
	AssistantRunsTotal.WithLabelValues(provider, status).Inc()
	AssistantRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFileUpload records one upload attempt.
func RecordFileUpload(status string) {
	FileUploadsTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth sets the current queue depth.
func SetQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

// RecordBackgroundJob records a background evaluation execution.
func RecordBackgroundJob(status string, duration time.Duration) {
	BackgroundJobsTotal.WithLabelValues(status).Inc()
	BackgroundJobDuration.WithLabelValues(status).Observe(duration.Seconds())
}
