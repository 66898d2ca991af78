// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"net/http"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

type logListResponse struct {
	Entries  []audit.Entry   `json:"entries"`
	PageInfo models.PageInfo `json:"page_info"`
}

// ListOperationLogs returns the audit trail. Requires the per-user
// can_view_logs capability; results are pinned to the caller's company
// unless the caller is a system admin. The company scope comes from the
// policy layer, never from client input.
func (h *Handler) ListOperationLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionList, policy.ResourceOperationLog); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	// can_view_logs is a stored flag, deliberately outside the token so a
	// revocation applies to live sessions.
	user, err := h.db.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	companyScope, err := policy.LogScope(p, user.CanViewLogs)
	if err != nil {
		respondPolicyDenied(w, err)
		return
	}

	page, pageSize := pagination(r)
	filter := audit.QueryFilter{
		CompanyID:  companyScope,
		UserID:     getInt64Param(r, "user_id"),
		Keyword:    r.URL.Query().Get("keyword"),
		TargetType: r.URL.Query().Get("target_type"),
		SearchText: r.URL.Query().Get("search"),
		StartTime:  getDateParam(r, "start_date"),
		EndTime:    getDateParam(r, "end_date"),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []audit.EventType{audit.EventType(t)}
	}

	entries, total, err := h.recorder.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "failed to query operation logs", err)
		return
	}

	respondSuccess(w, http.StatusOK, logListResponse{
		Entries: entries,
		PageInfo: models.PageInfo{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  int64(page*pageSize) < total,
		},
	})
}
