// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package api provides the HTTP surface. Handlers are thin: each one
// authenticates, consults the policy layer for the decision or row scope,
// calls storage, audits the mutation and encodes the response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/config"
	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
	"github.com/tomtom215/hazledger/internal/upload"
)

// Handler holds the dependencies shared by all endpoints. Everything is
// injected; nothing reads globals.
type Handler struct {
	db       *database.DB
	recorder *audit.Recorder
	jwt      *auth.JWTManager
	uploads  *upload.Store
	cfg      *config.Config

	// now is injected so the employee visibility window is deterministic
	// under test.
	now func() time.Time
}

// NewHandler wires the handler dependencies.
func NewHandler(db *database.DB, recorder *audit.Recorder, jwt *auth.JWTManager, uploads *upload.Store, cfg *config.Config) *Handler {
	return &Handler{
		db:       db,
		recorder: recorder,
		jwt:      jwt,
		uploads:  uploads,
		cfg:      cfg,
		now:      time.Now,
	}
}

// principal extracts the authenticated principal placed in the context by
// the auth middleware. The bool is false only if a route was misregistered
// outside the authenticated group.
func principal(r *http.Request) (policy.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}

// requirePrincipal is principal plus the 401 response for the misregistered
// case, so handlers can bail out in one line.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	p, ok := principal(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeAuthentication, "authentication required", nil)
	}
	return p, ok
}

// actor builds the audit actor for the current request.
func (h *Handler) actor(r *http.Request, p policy.Principal) audit.Actor {
	return audit.Actor{
		UserID:    p.UserID,
		CompanyID: p.CompanyID,
		Username:  h.usernameOf(r, p),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// usernameOf resolves the acting user's display name for the audit trail.
// Best-effort: a lookup failure falls back to the numeric id.
func (h *Handler) usernameOf(r *http.Request, p policy.Principal) string {
	user, err := h.db.GetUser(r.Context(), p.UserID)
	if err != nil {
		return ""
	}
	return user.Username
}
