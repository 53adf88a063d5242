// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvat_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvat_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvat_api_db_query_duration_seconds",
			Help:    "Duration of database reads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvat_api_db_query_errors_total",
			Help: "Total number of failed database reads",
		},
		[]string{"operation"},
	)

	// RecordsDensified counts frame records produced from keyframes.
	RecordsDensified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvat_api_records_densified_total",
			Help: "Total number of per-frame records emitted",
		},
		[]string{"kind"},
	)

	TrackFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cvat_api_track_failures_total",
			Help: "Total number of tracks rejected for malformed geometry",
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvat_api_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

func RecordDensified(kind string, n int) {
	if n > 0 {
		RecordsDensified.WithLabelValues(kind).Add(float64(n))
	}
}

func RecordTrackFailures(n int) {
	if n > 0 {
		TrackFailures.Add(float64(n))
	}
}

func RecordLogin(ok bool) {
	if ok {
		LoginAttempts.WithLabelValues("success").Inc()
		return
	}
	LoginAttempts.WithLabelValues("failure").Inc()
}
