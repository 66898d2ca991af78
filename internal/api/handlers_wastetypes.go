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

type wasteTypeRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// ListWasteTypes returns the global taxonomy. Every authenticated role may
// read it.
func (h *Handler) ListWasteTypes(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionList, policy.ResourceWasteType); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	types, err := h.db.ListWasteTypes(r.Context())
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, types)
}

func (h *Handler) CreateWasteType(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionCreate, policy.ResourceWasteType); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req wasteTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	wt := &models.WasteType{Name: req.Name}
	if err := h.db.CreateWasteType(r.Context(), wt); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetWasteType, wt.ID, wt.Name)
	respondSuccess(w, http.StatusCreated, wt)
}

func (h *Handler) GetWasteType(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionRead, policy.ResourceWasteType); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	wt, err := h.db.GetWasteType(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, wt)
}

func (h *Handler) UpdateWasteType(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceWasteType); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req wasteTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetWasteType(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	wt := &models.WasteType{ID: id, Name: req.Name}
	if err := h.db.UpdateWasteType(r.Context(), wt); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "name", before.Name, req.Name)
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetWasteType, id, changes)

	updated, err := h.db.GetWasteType(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteWasteType hard-deletes a taxonomy entry. Refused while any waste
// record references it.
func (h *Handler) DeleteWasteType(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionDelete, policy.ResourceWasteType); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	wt, err := h.db.GetWasteType(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := h.db.DeleteWasteType(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordDelete(r.Context(), h.actor(r, p), audit.TargetWasteType, id, wt.Name)
	respondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}
