// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

type userRequest struct {
	Username  string `json:"username" validate:"required,max=64"`
	Phone     string `json:"phone" validate:"required,max=32"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	Role      int    `json:"role" validate:"required"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	UnitID    *int64 `json:"unit_id,omitempty"`
}

// ListUsers returns accounts scoped to the caller's company. System admins
// see every tenant's users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionList, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	users, err := h.db.ListUsers(r.Context(), policy.CompanyFilter(p))
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionCreate, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "unknown role", nil)
		return
	}
	if err := policy.CanAssignCompany(p, req.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	user := &models.User{
		Username:  req.Username,
		Phone:     req.Phone,
		Role:      role,
		CompanyID: req.CompanyID,
		UnitID:    req.UnitID,
		Status:    models.StatusActive,
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, models.ErrCodeAuthentication, "failed to hash password", err)
			return
		}
		user.PasswordHash = hash
	}

	if err := h.db.CreateUser(r.Context(), user); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetUser, user.ID, user.Username)
	respondSuccess(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionRead, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	user, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, user.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "unknown role", nil)
		return
	}

	before, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, before.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := policy.CanAssignCompany(p, req.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	user := &models.User{
		ID:        id,
		Username:  req.Username,
		Phone:     req.Phone,
		Role:      role,
		CompanyID: req.CompanyID,
		UnitID:    req.UnitID,
		Status:    before.Status,
	}
	if err := h.db.UpdateUser(r.Context(), user); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "username", before.Username, req.Username)
	changes = audit.DiffField(changes, "phone", before.Phone, req.Phone)
	changes = audit.DiffField(changes, "role", strconv.Itoa(int(before.Role)), strconv.Itoa(req.Role))
	changes = audit.DiffField(changes, "company_id", strconv.FormatInt(before.CompanyID, 10), strconv.FormatInt(req.CompanyID, 10))
	changes = audit.DiffField(changes, "unit_id", formatOptionalID(before.UnitID), formatOptionalID(req.UnitID))

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, models.ErrCodeAuthentication, "failed to hash password", err)
			return
		}
		if err := h.db.UpdateUserPassword(r.Context(), id, hash); err != nil {
			respondStorageError(w, err)
			return
		}
		changes = append(changes, audit.Change{Field: "password", Old: "(hidden)", New: "(hidden)"})
	}

	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetUser, id, changes)

	updated, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteUser hard-deletes an account. Refused while the account has
// authored waste records.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionDelete, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	user, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, user.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordDelete(r.Context(), h.actor(r, p), audit.TargetUser, id, user.Username)
	respondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

type userStatusRequest struct {
	Status int `json:"status" validate:"oneof=0 1"`
}

// SetUserStatus enables or disables an account without deleting it.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req userStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, before.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := h.db.SetUserStatus(r.Context(), id, req.Status); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "status", strconv.Itoa(before.Status), strconv.Itoa(req.Status))
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetUser, id, changes)
	respondSuccess(w, http.StatusOK, map[string]int{"status": req.Status})
}

type logPermissionRequest struct {
	CanViewLogs bool `json:"can_view_logs"`
}

// SetLogPermission grants or revokes the per-user operation-log capability.
func (h *Handler) SetLogPermission(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUser); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	var req logPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanViewCompany(p, before.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := h.db.SetUserLogPermission(r.Context(), id, req.CanViewLogs); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "can_view_logs", strconv.FormatBool(before.CanViewLogs), strconv.FormatBool(req.CanViewLogs))
	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetUser, id, changes)
	respondSuccess(w, http.StatusOK, map[string]bool{"can_view_logs": req.CanViewLogs})
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "none"
	}
	return strconv.FormatInt(*id, 10)
}
