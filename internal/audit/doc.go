// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package audit records the operation log: one entry per login attempt and
// per entity mutation, written synchronously before the HTTP response.
//
// Writes are best-effort. A failed audit write never fails the business
// operation; the error goes to operator diagnostics only. The log is
// append-only from the application's point of view — the single delete path
// is the retention purge, which runs as a supervised background service.
//
// Queries are company-scoped: the handler layer derives the tenant pin from
// the caller's role and passes it in the filter, so a unit admin granted log
// access can never read another company's trail.
package audit
