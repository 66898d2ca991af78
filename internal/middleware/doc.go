// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package middleware provides HTTP middleware shared by all routes:
// request ID propagation, Prometheus instrumentation and gzip compression.
// Authentication middleware lives in internal/auth because it needs the
// token manager.
package middleware
