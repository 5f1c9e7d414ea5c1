// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

// Package metrics provides Prometheus instrumentation for:
// - Sync runs and per-provider row accounting
// - Upstream Google API requests and circuit breaker state
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Operation Metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync orchestration runs",
		},
		[]string{"status"}, // "success", "partial", "error"
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of full sync orchestration runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	SyncRowsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_fetched_total",
			Help: "Raw rows fetched from upstream providers",
		},
		[]string{"provider"}, // "search", "usage"
	)

	SyncRowsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_matched_total",
			Help: "Rows matched to known pages after reconciliation",
		},
		[]string{"provider"},
	)

	SyncSnapshotsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_snapshots_upserted_total",
			Help: "Aggregated daily snapshots written to the store",
		},
		[]string{"provider"},
	)

	SyncPagesAutoRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_pages_auto_registered_total",
			Help: "Pages auto-registered for URLs discovered during sync",
		},
	)

	SyncProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_provider_errors_total",
			Help: "Per-provider failures recorded during sync runs",
		},
		[]string{"provider", "error_type"}, // "credential", "auth", "fetch", "store"
	)

	SyncLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed sync run",
		},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_in_progress",
			Help: "1 while a sync run is executing, 0 otherwise",
		},
	)

	// Upstream Google API Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total requests issued to upstream Google APIs",
		},
		[]string{"endpoint", "status_code"}, // "token", "search_query", "usage_report"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retries issued after upstream 429 responses",
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_circuit_breaker_trips_total",
			Help: "Total circuit breaker open transitions",
		},
		[]string{"name"},
	)

	// Database Metrics
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

	// API Endpoint Metrics
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
)

// RecordSyncRun records the outcome of one orchestration run.
func RecordSyncRun(duration time.Duration, errorCount int, failed bool) {
	SyncRunDuration.Observe(duration.Seconds())
	SyncLastRunTimestamp.SetToCurrentTime()

	switch {
	case failed:
		SyncRunsTotal.WithLabelValues("error").Inc()
	case errorCount > 0:
		SyncRunsTotal.WithLabelValues("partial").Inc()
	default:
		SyncRunsTotal.WithLabelValues("success").Inc()
	}
}

// RecordProviderRows records per-provider row accounting for one workspace.
func RecordProviderRows(provider string, fetched, matched, upserted int) {
	SyncRowsFetched.WithLabelValues(provider).Add(float64(fetched))
	SyncRowsMatched.WithLabelValues(provider).Add(float64(matched))
	SyncSnapshotsUpserted.WithLabelValues(provider).Add(float64(upserted))
}

// RecordUpstreamRequest records one upstream API request.
func RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records a database query with its duration and outcome.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request for throughput and latency tracking.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
