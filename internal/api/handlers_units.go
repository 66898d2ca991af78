// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

type unitRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
}

// ListUnits returns units, row-scoped to the caller's company unless the
// caller is a system admin.
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionList, policy.ResourceUnit); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	units, err := h.db.ListUnits(r.Context(), policy.CompanyFilter(p))
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, units)
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionCreate, policy.ResourceUnit); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req unitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := policy.CanAssignCompany(p, req.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	unit := &models.Unit{Name: req.Name, CompanyID: req.CompanyID}
	if err := h.db.CreateUnit(r.Context(), unit); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetUnit, unit.ID, unit.Name)
	respondSuccess(w, http.StatusCreated, unit)
}

func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionRead, policy.ResourceUnit); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	unit, err := h.db.GetUnit(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, unit.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, unit)
}

func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUnit); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req unitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetUnit(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	// Both the row's current company and the requested one must be
	// within reach: otherwise a company admin could pull a foreign unit
	// into their own tenant.
	if err := policy.CanViewCompany(p, before.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := policy.CanAssignCompany(p, req.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	unit := &models.Unit{ID: id, Name: req.Name, CompanyID: req.CompanyID}
	if err := h.db.UpdateUnit(r.Context(), unit); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "name", before.Name, req.Name)
	changes = audit.DiffField(changes, "company_id", strconv.FormatInt(before.CompanyID, 10), strconv.FormatInt(req.CompanyID, 10))
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetUnit, id, changes)

	updated, err := h.db.GetUnit(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteUnit hard-deletes a unit. Refused while users are assigned to it
// or waste records reference it.
func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionDelete, policy.ResourceUnit); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	unit, err := h.db.GetUnit(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, unit.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := h.db.DeleteUnit(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordDelete(r.Context(), h.actor(r, p), audit.TargetUnit, id, unit.Name)
	respondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}
