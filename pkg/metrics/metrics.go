// Package metrics exposes Prometheus instrumentation for provider calls,
// sync jobs and the token lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agriwebb_sync"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// Provider Metrics
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of AgriWebb API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of AgriWebb API calls",
		},
		[]string{"operation", "outcome"},
	)

	// Job Metrics
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of sync jobs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of finished sync jobs by status",
		},
		[]string{"job", "status"},
	)

	RecordsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Total number of provider records committed to the database",
		},
		[]string{"entity"},
	)

	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Number of background tasks currently running",
		},
	)

	// Token Metrics
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Total number of OAuth token refresh attempts",
		},
		[]string{"outcome"},
	)
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordProviderRequest records one AgriWebb API call.
func RecordProviderRequest(operation string, duration time.Duration, err error) {
	ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	ProviderRequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordJob records a finished job and, on success, the records it committed.
func RecordJob(job, status string, duration time.Duration, entity string, ingested int) {
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	JobsTotal.WithLabelValues(job, status).Inc()
	if ingested > 0 && entity != "" {
		RecordsIngestedTotal.WithLabelValues(entity).Add(float64(ingested))
	}
}

// RecordTokenRefresh records a refresh attempt.
func RecordTokenRefresh(err error) {
	TokenRefreshesTotal.WithLabelValues(outcome(err)).Inc()
}

// TrackTask adjusts the running-task gauge.
func TrackTask(started bool) {
	if started {
		TasksRunning.Inc()
	} else {
		TasksRunning.Dec()
	}
}
