// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package policy is the access decision layer for HazLedger.
//
// Every data-access operation asks this package two questions before touching
// storage: is the action permitted at all, and which rows may the principal
// see. Answers are pure values computed from the principal descriptor carried
// by the verified token; the package performs no I/O and reads no ambient
// clock, which keeps every rule deterministic under test.
//
// The row-visibility answer is a structured RecordVisibility descriptor
// (company pin, unit pin, creator pin, time floor, supervised-record
// visibility), never SQL. The storage layer translates the descriptor into
// WHERE clauses; a fake backend can apply it in memory.
//
// The five role tiers interact as follows for waste records:
//
//	employee       own rows only, last 48 hours, own unit, no supervised rows
//	unit_admin     whole unit, no supervised rows
//	company_admin  whole company, supervised rows unless explicitly excluded
//	supervisor     own rows company-wide, supervised included
//	system_admin   everything
//
// Unit and waste-type writes are gated by the legacy three-role bundle
// (company_admin, supervisor, system_admin). The bundle is preserved here
// exactly as the historical behavior; see DESIGN.md for the discussion.
package policy
