// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/metrics"
	"github.com/tomtom215/hazledger/internal/models"
)

type loginRequest struct {
	Phone      string `json:"phone" validate:"required,max=32"`
	Password   string `json:"password" validate:"max=128"`
	RememberMe bool   `json:"remember_me"`
}

// Login authenticates by phone and optional password and issues a bearer
// token. The response never distinguishes unknown phone from wrong password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ip := clientIP(r)
	ua := r.UserAgent()

	user, err := h.db.GetUserByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.recorder.RecordLogin(r.Context(), nil, nil, req.Phone, false, ip, ua)
			metrics.RecordLogin(false)
			respondError(w, http.StatusUnauthorized, models.ErrCodeAuthentication, "invalid credentials", nil)
			return
		}
		respondStorageError(w, err)
		return
	}

	if user.Status != models.StatusActive {
		h.recorder.RecordLogin(r.Context(), &user.ID, &user.CompanyID, user.Username, false, ip, ua)
		metrics.RecordLogin(false)
		respondError(w, http.StatusUnauthorized, models.ErrCodeAuthentication, "account is disabled", nil)
		return
	}

	if err := auth.VerifyPassword(user, req.Password); err != nil {
		h.recorder.RecordLogin(r.Context(), &user.ID, &user.CompanyID, user.Username, false, ip, ua)
		metrics.RecordLogin(false)
		respondError(w, http.StatusUnauthorized, models.ErrCodeAuthentication, "invalid credentials", nil)
		return
	}

	token, err := h.jwt.GenerateToken(user, req.RememberMe)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeAuthentication, "failed to issue token", err)
		return
	}

	if err := h.db.UpdateLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to record login time")
	}

	h.recorder.RecordLogin(r.Context(), &user.ID, &user.CompanyID, user.Username, true, ip, ua)
	metrics.RecordLogin(true)

	expiry := h.cfg.Security.TokenExpiry
	if req.RememberMe {
		expiry = h.cfg.Security.RememberExpiry
	}

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(expiry.Seconds()),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		UnitID:    user.UnitID,
	})
}

// GetProfile returns the caller's own account.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

type profileRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
}

// UpdateProfile is the self-service endpoint: username, phone and optionally
// a new password, always for the caller's own account.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	before, err := h.db.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	if err := h.db.UpdateUserProfile(r.Context(), p.UserID, req.Username, req.Phone); err != nil {
		respondStorageError(w, err)
		return
	}

	var changes []audit.Change
	changes = audit.DiffField(changes, "username", before.Username, req.Username)
	changes = audit.DiffField(changes, "phone", before.Phone, req.Phone)

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, models.ErrCodeAuthentication, "failed to update password", err)
			return
		}
		if err := h.db.UpdateUserPassword(r.Context(), p.UserID, hash); err != nil {
			respondStorageError(w, err)
			return
		}
		changes = append(changes, audit.Change{Field: "password", Old: "(hidden)", New: "(hidden)"})
	}

	h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetUser, p.UserID, changes)

	updated, err := h.db.GetUser(r.Context(), p.UserID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}
