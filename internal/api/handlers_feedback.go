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

type feedbackRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=4000"`
	Type        string `json:"type" validate:"max=32"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// CreateFeedback files an issue report. Any authenticated user may file;
// the report is pinned to the caller's company and starts pending.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fb := &models.Feedback{
		UserID:      p.UserID,
		CompanyID:   p.CompanyID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
	}
	if err := h.db.CreateFeedback(r.Context(), fb); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetFeedback, fb.ID, fb.Title)
	respondSuccess(w, http.StatusCreated, fb)
}

// ListFeedback returns reports scoped to the caller's company; system
// admins see every tenant's reports.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	reports, err := h.db.ListFeedback(r.Context(), policy.CompanyFilter(p))
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, reports)
}

type feedbackUpdateRequest struct {
	Status string `json:"status" validate:"required"`
	Reply  string `json:"reply" validate:"max=4000"`
}

// UpdateFeedback records an admin disposition: a status transition plus an
// optional reply. Requires an admin-tier role.
func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.CanHandleFeedback(p); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req feedbackUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fb, err := h.db.GetFeedback(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, fb.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	if err := h.db.UpdateFeedbackStatus(r.Context(), id, p.UserID, req.Status, req.Reply); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "status", fb.Status, req.Status)
	if req.Reply != "" {
		changes = append(changes, audit.Change{Field: "admin_reply", Old: fb.AdminReply, New: req.Reply})
	}
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetFeedback, id, changes)

	updated, err := h.db.GetFeedback(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}
