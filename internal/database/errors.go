// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package database

import "errors"

// Sentinel errors surfaced by the stores. Handlers map these onto HTTP
// status codes; storage failure details never reach the client.
var (
	// ErrNotFound indicates a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or deletion-guard violation.
	// Wrapped with a reason, e.g. "company name already in use: conflict".
	ErrConflict = errors.New("conflict")
)
