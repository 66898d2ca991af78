// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package metrics exposes Prometheus instrumentation. Metrics are served at
// /metrics in Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_http_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hazledger_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hazledger_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hazledger_db_query_duration_seconds",
			Help:    "Database query execution time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_db_query_errors_total",
			Help: "Database query failures",
		},
		[]string{"operation"},
	)

	// Authentication metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_authorization_denials_total",
			Help: "Requests denied by the access policy",
		},
		[]string{"resource", "action"},
	)

	// Audit metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_audit_writes_total",
			Help: "Operation log writes by outcome",
		},
		[]string{"outcome"},
	)

	AuditPurgedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hazledger_audit_purged_entries_total",
			Help: "Operation log entries removed by retention purge",
		},
	)

	// Upload metrics
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hazledger_upload_bytes_total",
			Help: "Total photo bytes accepted",
		},
	)

	UploadRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazledger_upload_rejections_total",
			Help: "Rejected photo uploads by reason",
		},
		[]string{"reason"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records one database operation.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordLogin records a login attempt outcome.
func RecordLogin(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordAuthzDenial records a policy denial.
func RecordAuthzDenial(resource, action string) {
	AuthorizationDenials.WithLabelValues(resource, action).Inc()
}

// RecordAuditWrite records an operation log write outcome.
func RecordAuditWrite(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AuditWrites.WithLabelValues(outcome).Inc()
}
