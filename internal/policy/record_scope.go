// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package policy

import (
	"time"

	"github.com/tomtom215/hazledger/internal/models"
)

// EmployeeVisibilityWindow is how far back a rank-and-file employee can see
// their own records.
const EmployeeVisibilityWindow = 48 * time.Hour

// SupervisedVisibility controls whether supervised records appear in results.
type SupervisedVisibility int

const (
	// SupervisedExcluded hides records with the supervised marker.
	SupervisedExcluded SupervisedVisibility = iota

	// SupervisedIncluded shows supervised records alongside regular ones.
	SupervisedIncluded
)

// RecordVisibility is the mandatory row filter for waste-record reads.
// Nil pointer fields mean "no restriction on this axis". It is a pure value:
// any storage backend can translate it, and tests can apply it in memory.
type RecordVisibility struct {
	CompanyID  *int64
	UnitID     *int64
	CreatorID  *int64
	Since      *time.Time
	Supervised SupervisedVisibility
}

// ListOptions are the caller-supplied knobs that the scope may honor
// depending on role.
type ListOptions struct {
	// UnitID narrows results to one unit. Honored for company admins,
	// supervisors and the system admin, whose scopes are otherwise wider
	// than a unit; employees and unit admins are already pinned to their
	// own unit, so for them the knob is ignored.
	UnitID *int64

	// ShowSupervised, when explicitly false, excludes supervised records
	// for company admins. Ignored for every other role.
	ShowSupervised *bool
}

// RecordReadScope computes the row filter for listing and export. The same
// scope must be applied to both so an export can never widen visibility.
//
// now is injected by the caller so the employee time window is deterministic
// under test.
func RecordReadScope(p Principal, opts ListOptions, now time.Time) (RecordVisibility, error) {
	switch p.Role {
	case models.RoleEmployee:
		if p.UnitID == nil {
			return RecordVisibility{}, deny(p, ActionList, ResourceWasteRecord, "employee has no unit")
		}
		since := now.Add(-EmployeeVisibilityWindow)
		return RecordVisibility{
			CompanyID:  ptr(p.CompanyID),
			UnitID:     ptr(*p.UnitID),
			CreatorID:  ptr(p.UserID),
			Since:      &since,
			Supervised: SupervisedExcluded,
		}, nil

	case models.RoleUnitAdmin:
		if p.UnitID == nil {
			return RecordVisibility{}, deny(p, ActionList, ResourceWasteRecord, "unit admin has no unit")
		}
		return RecordVisibility{
			CompanyID:  ptr(p.CompanyID),
			UnitID:     ptr(*p.UnitID),
			Supervised: SupervisedExcluded,
		}, nil

	case models.RoleCompanyAdmin:
		v := RecordVisibility{
			CompanyID:  ptr(p.CompanyID),
			UnitID:     opts.UnitID,
			Supervised: SupervisedIncluded,
		}
		if opts.ShowSupervised != nil && !*opts.ShowSupervised {
			v.Supervised = SupervisedExcluded
		}
		return v, nil

	case models.RoleSupervisor:
		return RecordVisibility{
			CompanyID:  ptr(p.CompanyID),
			UnitID:     opts.UnitID,
			CreatorID:  ptr(p.UserID),
			Supervised: SupervisedIncluded,
		}, nil

	case models.RoleSystemAdmin:
		return RecordVisibility{
			UnitID:     opts.UnitID,
			Supervised: SupervisedIncluded,
		}, nil

	default:
		return RecordVisibility{}, deny(p, ActionList, ResourceWasteRecord, "unknown role")
	}
}

// Matches applies the visibility descriptor to one record in memory. Storage
// backends translate the descriptor to queries; this is the reference
// semantics both must agree on.
func (v RecordVisibility) Matches(rec *models.WasteRecord) bool {
	if v.CompanyID != nil && rec.CompanyID != *v.CompanyID {
		return false
	}
	if v.UnitID != nil && rec.UnitID != *v.UnitID {
		return false
	}
	if v.CreatorID != nil && rec.CreatorID != *v.CreatorID {
		return false
	}
	if v.Since != nil && rec.CreatedAt.Before(*v.Since) {
		return false
	}
	if v.Supervised == SupervisedExcluded && rec.IsSupervised {
		return false
	}
	return true
}

// CanCreateRecord checks whether the principal may file a record against the
// given unit. unitCompanyID is the owning company of that unit.
//
// Employees and unit admins file for their own unit only. Company admins and
// supervisors file for any unit in their own company; the supervisor rule is
// the one spelled out by the access rules, the company-admin case follows
// from cross-company isolation. System admins are unrestricted.
func CanCreateRecord(p Principal, unitID, unitCompanyID int64) error {
	switch p.Role {
	case models.RoleSystemAdmin:
		return nil
	case models.RoleCompanyAdmin, models.RoleSupervisor:
		if unitCompanyID != p.CompanyID {
			return deny(p, ActionCreate, ResourceWasteRecord, "unit belongs to another company")
		}
		return nil
	case models.RoleEmployee, models.RoleUnitAdmin:
		if p.UnitID == nil || *p.UnitID != unitID {
			return deny(p, ActionCreate, ResourceWasteRecord, "can only file for own unit")
		}
		if unitCompanyID != p.CompanyID {
			return deny(p, ActionCreate, ResourceWasteRecord, "unit belongs to another company")
		}
		return nil
	default:
		return deny(p, ActionCreate, ResourceWasteRecord, "unknown role")
	}
}

// CanMutateRecord checks update/delete access for an existing record: the
// record must fall inside the principal's read scope computed at the same
// instant. A row the caller cannot see is a row the caller cannot change.
func CanMutateRecord(p Principal, rec *models.WasteRecord, now time.Time) error {
	scope, err := RecordReadScope(p, ListOptions{}, now)
	if err != nil {
		return err
	}
	if !scope.Matches(rec) {
		return deny(p, ActionUpdate, ResourceWasteRecord, "record outside visible scope")
	}
	return nil
}

// ptr returns a pointer to v.
func ptr[T any](v T) *T {
	return &v
}
