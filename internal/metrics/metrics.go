// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package metrics registers the service's Prometheus collectors: API
// latency and throughput, snapshot refresh health, pipeline compute time,
// cache efficiency and the Supabase circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Snapshot refresh metrics.
	SnapshotRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_refreshes_total",
			Help: "Total number of snapshot refresh attempts",
		},
		[]string{"status"}, // "success", "error"
	)

	SnapshotRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_refresh_duration_seconds",
			Help:    "Duration of a full snapshot refresh in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	SnapshotAgeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_age_seconds",
			Help: "Age of the currently served snapshot in seconds",
		},
	)

	SnapshotRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_records",
			Help: "Record counts in the current snapshot",
		},
		[]string{"table"}, // "events", "contacts", "companies"
	)

	// Pipeline metrics.
	PipelineComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_compute_duration_seconds",
			Help:    "Duration of a full dashboard computation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache metrics.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Total number of analytics cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Total number of analytics cache misses",
		},
	)

	// Circuit breaker metrics for the Supabase client.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRefresh records one snapshot refresh attempt.
func RecordRefresh(duration time.Duration, err error) {
	SnapshotRefreshDuration.Observe(duration.Seconds())
	if err != nil {
		SnapshotRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	SnapshotRefreshesTotal.WithLabelValues("success").Inc()
}

// UpdateSnapshotAge publishes the served snapshot's age.
func UpdateSnapshotAge(fetchedAt time.Time) {
	SnapshotAgeSeconds.Set(time.Since(fetchedAt).Seconds())
}

// UpdateSnapshotRecords publishes the record counts of the served snapshot.
func UpdateSnapshotRecords(events, contacts, companies int) {
	SnapshotRecords.WithLabelValues("events").Set(float64(events))
	SnapshotRecords.WithLabelValues("contacts").Set(float64(contacts))
	SnapshotRecords.WithLabelValues("companies").Set(float64(companies))
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
