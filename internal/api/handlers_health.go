// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/hazledger/internal/models"
)

// Health reports liveness plus storage reachability. Public: load balancers
// probe it without a token.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, &models.APIResponse{
		Status: "success",
		Data: map[string]string{
			"status": status,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
