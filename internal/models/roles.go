// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package models

import "fmt"

// Role is the closed enumeration of user role tiers.
//
// The numeric values are part of the wire and storage format and must not
// change. The ordinal encodes nothing about privilege; every access rule is
// expressed explicitly in the policy package.
type Role int

const (
	// RoleEmployee is a rank-and-file worker pinned to a single unit.
	RoleEmployee Role = 1

	// RoleUnitAdmin administers a single unit's records.
	RoleUnitAdmin Role = 2

	// RoleCompanyAdmin administers everything inside one company.
	RoleCompanyAdmin Role = 3

	// RoleSupervisor files supervised records company-wide but is blocked
	// from the user-management surface.
	RoleSupervisor Role = 4

	// RoleSystemAdmin is the unrestricted top-level operator role.
	RoleSystemAdmin Role = 5
)

// Valid reports whether r is one of the five defined tiers.
func (r Role) Valid() bool {
	return r >= RoleEmployee && r <= RoleSystemAdmin
}

// RequiresUnit reports whether users of this role must be attached to a unit.
func (r Role) RequiresUnit() bool {
	return r == RoleEmployee || r == RoleUnitAdmin
}

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleUnitAdmin:
		return "unit_admin"
	case RoleCompanyAdmin:
		return "company_admin"
	case RoleSupervisor:
		return "supervisor"
	case RoleSystemAdmin:
		return "system_admin"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}
