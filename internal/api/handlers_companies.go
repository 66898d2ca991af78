// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

type companyRequest struct {
	Name string `json:"name" validate:"required,max=128"`
	Code string `json:"code" validate:"max=64"`
}

// ListCompanies returns every active company. System admins see all
// tenants; everyone else sees only their own.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	companies, err := h.db.ListActiveCompanies(r.Context())
	if err != nil {
		respondStorageError(w, err)
		return
	}

	if scope := policy.CompanyFilter(p); scope != nil {
		filtered := companies[:0]
		for _, c := range companies {
			if c.ID == *scope {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
	}
	respondSuccess(w, http.StatusOK, companies)
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionCreate, policy.ResourceCompany); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req companyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	company := &models.Company{Name: req.Name, Code: req.Code, Status: models.StatusActive}
	if err := h.db.CreateCompany(r.Context(), company); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetCompany, company.ID, company.Name)
	respondSuccess(w, http.StatusCreated, company)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.CanViewCompany(p, id); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	company, err := h.db.GetCompany(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, company)
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceCompany); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req companyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetCompany(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	company := &models.Company{ID: id, Name: req.Name, Code: req.Code, Status: before.Status}
	if err := h.db.UpdateCompany(r.Context(), company); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "name", before.Name, req.Name)
	changes = audit.DiffField(changes, "code", before.Code, req.Code)
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetCompany, id, changes)

	updated, err := h.db.GetCompany(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteCompany soft-deletes a tenant. The row is refused while units,
// users or waste records still reference it.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionDelete, policy.ResourceCompany); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	company, err := h.db.GetCompany(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := h.db.DeleteCompany(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordDelete(r.Context(), h.actor(r, p), audit.TargetCompany, id, company.Name)
	respondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) GetCompanyStats(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.CanViewCompany(p, id); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	stats, err := h.db.GetCompanyStats(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, stats)
}

// CheckCompanyName reports whether a company name is already taken,
// optionally excluding one id (for edit forms).
func (h *Handler) CheckCompanyName(w http.ResponseWriter, r *http.Request) {
	h.checkCompanyField(w, r, "name", h.db.CompanyNameExists)
}

// CheckCompanyCode is the code counterpart of CheckCompanyName. Empty
// codes are never considered taken.
func (h *Handler) CheckCompanyCode(w http.ResponseWriter, r *http.Request) {
	h.checkCompanyField(w, r, "code", h.db.CompanyCodeExists)
}

func (h *Handler) checkCompanyField(w http.ResponseWriter, r *http.Request, param string, exists func(ctx context.Context, value string, excludeID int64) (bool, error)) {
	value := r.URL.Query().Get(param)
	if value == "" {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, param+" parameter is required", nil)
		return
	}

	var excludeID int64
	if v := getInt64Param(r, "exclude_id"); v != nil {
		excludeID = *v
	}

	taken, err := exists(r.Context(), value, excludeID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"exists": taken})
}
