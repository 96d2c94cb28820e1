// Package observability holds Prometheus metrics for the app's backing
// services. HTTP request metrics come from fiberprometheus; everything here
// covers what that middleware cannot see.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triplog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// TourAPIRequests counts upstream tourism API calls by endpoint and outcome.
	TourAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_tour_api_requests_total",
		Help: "Total tourism API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// StorageOperations counts object storage uploads and deletes by outcome.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_storage_operations_total",
		Help: "Total object storage operations by type and outcome",
	}, []string{"operation", "outcome"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}

// RecordTourAPIRequest increments the tourism API counter.
func RecordTourAPIRequest(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	TourAPIRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordStorageOperation increments the object storage counter.
func RecordStorageOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StorageOperations.WithLabelValues(operation, outcome).Inc()
}
