// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package policy

import (
	"fmt"

	"github.com/tomtom215/hazledger/internal/models"
)

// Principal is the authenticated caller descriptor recovered from the token.
type Principal struct {
	UserID    int64
	Role      models.Role
	CompanyID int64
	UnitID    *int64
}

// Resource identifies a protected entity class.
type Resource string

const (
	ResourceCompany      Resource = "company"
	ResourceUnit         Resource = "unit"
	ResourceWasteType    Resource = "waste_type"
	ResourceUser         Resource = "user"
	ResourceWasteRecord  Resource = "waste_record"
	ResourceOperationLog Resource = "operation_log"
	ResourceFeedback     Resource = "feedback"
)

// Action identifies what the caller wants to do with a resource.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// DeniedError is returned when the decision table rejects an action outright.
type DeniedError struct {
	Principal Principal
	Action    Action
	Resource  Resource
	Reason    string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("policy: %s denied %s on %s: %s", e.Principal.Role, e.Action, e.Resource, e.Reason)
}

// deny builds a DeniedError for the given decision.
func deny(p Principal, action Action, resource Resource, reason string) error {
	return &DeniedError{Principal: p, Action: action, Resource: resource, Reason: reason}
}

// Authorize is the decision table for coarse permit/reject checks. Row-level
// scoping is layered on top by CompanyFilter, RecordReadScope and LogScope.
//
//nolint:gocyclo // single auditable decision table by design of the role model
func Authorize(p Principal, action Action, resource Resource) error {
	if !p.Role.Valid() {
		return deny(p, action, resource, "unknown role")
	}

	switch resource {
	case ResourceCompany:
		// Reading the caller's own company row is allowed for everyone;
		// everything else on the company surface is system-admin only.
		if action == ActionRead {
			return nil
		}
		if p.Role != models.RoleSystemAdmin {
			return deny(p, action, resource, "company management is system-admin only")
		}
		return nil

	case ResourceUnit, ResourceWasteType:
		switch action {
		case ActionList, ActionRead:
			return nil
		default:
			// Historical write gate bundling company admins, supervisors
			// and the system admin. Preserved as-is.
			switch p.Role {
			case models.RoleCompanyAdmin, models.RoleSupervisor, models.RoleSystemAdmin:
				return nil
			default:
				return deny(p, action, resource, "write requires admin tier")
			}
		}

	case ResourceUser:
		// Supervisors are locked out of the entire user-management surface
		// by a dedicated gate, independent of company scoping.
		if p.Role == models.RoleSupervisor {
			return deny(p, action, resource, "supervisors cannot manage users")
		}
		return nil

	case ResourceWasteRecord, ResourceFeedback:
		return nil

	case ResourceOperationLog:
		// Visibility of logs also requires the per-user can_view_logs
		// capability, checked by LogScope which sees the flag.
		if action != ActionList && action != ActionRead {
			return deny(p, action, resource, "operation logs are append-only")
		}
		return nil

	default:
		return deny(p, action, resource, "unknown resource")
	}
}

// CompanyFilter returns the company id every query for this principal must be
// pinned to, or nil for the unrestricted system-admin role.
func CompanyFilter(p Principal) *int64 {
	if p.Role == models.RoleSystemAdmin {
		return nil
	}
	id := p.CompanyID
	return &id
}

// CanViewCompany reports whether the principal may read the given company row.
func CanViewCompany(p Principal, companyID int64) error {
	if p.Role == models.RoleSystemAdmin || p.CompanyID == companyID {
		return nil
	}
	return deny(p, ActionRead, ResourceCompany, "cross-company read")
}

// CanAssignCompany rejects a non-system-admin setting or changing an entity's
// company to one other than their own. This is the ownership-transfer guard
// for units and users.
func CanAssignCompany(p Principal, targetCompanyID int64) error {
	if p.Role == models.RoleSystemAdmin {
		return nil
	}
	if targetCompanyID != p.CompanyID {
		return deny(p, ActionUpdate, ResourceUnit, "cannot assign to another company")
	}
	return nil
}

// CanUpdateProfile permits a user to update exactly their own profile through
// the self-service endpoint, regardless of role.
func CanUpdateProfile(p Principal, targetUserID int64) error {
	if p.UserID == targetUserID {
		return nil
	}
	return deny(p, ActionUpdate, ResourceUser, "profile endpoint is self-only")
}

// CanHandleFeedback reports whether the caller may set feedback status and
// reply. Handling is admin-tier and up; row scope is checked separately via
// CanViewCompany.
func CanHandleFeedback(p Principal) error {
	switch p.Role {
	case models.RoleCompanyAdmin, models.RoleSupervisor, models.RoleSystemAdmin:
		return nil
	default:
		return deny(p, ActionUpdate, ResourceFeedback, "feedback handling requires an admin role")
	}
}

// SupervisedFlagForCreator returns the is_supervised marker value for a new
// record. The flag is system-derived from the creator's role and never
// settable by client input.
func SupervisedFlagForCreator(role models.Role) bool {
	return role == models.RoleSupervisor
}

// CanReassignRecordCompany reports whether the principal may change a waste
// record's company_id during update.
func CanReassignRecordCompany(p Principal) bool {
	return p.Role == models.RoleSystemAdmin
}

// LogScope computes operation-log visibility. The can_view_logs capability is
// a per-user flag stored outside the token, so callers pass it explicitly.
//
// System admins see logs across companies; every other principal, including
// one granted can_view_logs, is limited to their own company.
func LogScope(p Principal, canViewLogs bool) (*int64, error) {
	if p.Role == models.RoleSystemAdmin {
		return nil, nil
	}
	if !canViewLogs {
		return nil, deny(p, ActionList, ResourceOperationLog, "can_view_logs not granted")
	}
	id := p.CompanyID
	return &id, nil
}
