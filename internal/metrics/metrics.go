// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

// Package metrics provides Prometheus metrics for the automation
// pipeline, the GitHub API client and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Automation Metrics
	AutomationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_runs_total",
			Help: "Total number of habit automation runs by outcome",
		},
		[]string{"outcome"}, // "completed", "skipped", "failed"
	)

	AutomationRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "automation_run_duration_seconds",
			Help:    "Duration of a single habit automation run in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	AutomationScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "automation_scan_duration_seconds",
			Help:    "Duration of a full scheduler scan in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	AutomationScansSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automation_scans_skipped_total",
			Help: "Total number of scheduler ticks skipped because a scan was still running",
		},
	)

	AutomationHabitsScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "automation_habits_scanned",
			Help:    "Number of automation-enabled habits found per scan",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	EntriesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automation_entries_created_total",
			Help: "Total number of habit entries created by automation",
		},
	)

	EntriesDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automation_entries_deduplicated_total",
			Help: "Total number of events skipped because an entry already existed",
		},
	)

	// GitHub Client Metrics
	GitHubRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "github_request_duration_seconds",
			Help:    "Duration of GitHub API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"}, // "user", "events"
	)

	GitHubRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_requests_total",
			Help: "Total number of GitHub API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	GitHubCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "github_circuit_breaker_state",
			Help: "GitHub circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
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
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAutomationRun records one habit automation run.
func RecordAutomationRun(outcome string, duration time.Duration) {
	AutomationRunsTotal.WithLabelValues(outcome).Inc()
	AutomationRunDuration.Observe(duration.Seconds())
}

// RecordScan records one completed scheduler scan.
func RecordScan(habits int, duration time.Duration) {
	AutomationScanDuration.Observe(duration.Seconds())
	AutomationHabitsScanned.Observe(float64(habits))
}

// RecordGitHubRequest records one GitHub API request.
func RecordGitHubRequest(endpoint, status string, duration time.Duration) {
	GitHubRequestsTotal.WithLabelValues(endpoint, status).Inc()
	GitHubRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records database query performance and errors.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records one HTTP API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetCircuitBreakerState updates the GitHub breaker state gauge.
func SetCircuitBreakerState(state float64) {
	GitHubCircuitBreakerState.Set(state)
}
