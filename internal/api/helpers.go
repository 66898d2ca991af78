// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/metrics"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
	"github.com/tomtom215/hazledger/internal/validation"
)

// sanitizeLogValue replaces control characters so attacker-supplied strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a response envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the success envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// respondError sends an error envelope and logs the underlying cause.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondStorageError translates storage sentinels into the API taxonomy.
// Raw database errors never reach the client.
func respondStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "resource not found", nil)
	case errors.Is(err, database.ErrConflict):
		respondError(w, http.StatusConflict, models.ErrCodeConflict, conflictMessage(err), nil)
	default:
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "storage operation failed", err)
	}
}

// conflictMessage surfaces the guard's own wording; guard errors are written
// for end users and carry no storage detail.
func conflictMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "+database.ErrConflict.Error()); i > 0 {
		return msg[:i]
	}
	return "conflicting resource state"
}

// respondPolicyDenied maps a policy denial to 403 and counts it.
func respondPolicyDenied(w http.ResponseWriter, err error) {
	var denied *policy.DeniedError
	if errors.As(err, &denied) {
		metrics.RecordAuthzDenial(string(denied.Resource), string(denied.Action))
	}
	respondError(w, http.StatusForbidden, models.ErrCodeAuthorization, "operation not permitted for this role", nil)
}

// decodeBody parses and validates a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid request body", nil)
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		var ve *validation.RequestValidationError
		if errors.As(err, &ve) {
			respondJSON(w, http.StatusBadRequest, &models.APIResponse{
				Status:   "error",
				Metadata: models.Metadata{Timestamp: time.Now().UTC()},
				Error: &models.APIError{
					Code:    models.ErrCodeValidation,
					Message: "request validation failed",
					Details: ve.Details(),
				},
			})
		} else {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "request validation failed", err)
		}
		return false
	}
	return true
}

// idParam parses the {id} route parameter, answering 400 when it is not a
// positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid id parameter", nil)
		return 0, false
	}
	return id, true
}

// getIntParam extracts an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getInt64Param extracts an optional int64 query parameter.
func getInt64Param(r *http.Request, key string) *int64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// getFloatParam extracts an optional float query parameter.
func getFloatParam(r *http.Request, key string) *float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

// getBoolParam extracts an optional boolean query parameter. Absent or
// unparseable values return nil so "not specified" stays distinct from false.
func getBoolParam(r *http.Request, key string) *bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &b
}

// getDateParam parses a yyyy-mm-dd query parameter. A malformed date is
// logged and ignored rather than failing the request.
func getDateParam(r *http.Request, key string) *time.Time {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		logging.Ctx(r.Context()).Debug().
			Str("param", key).
			Str("value", sanitizeLogValue(value)).
			Msg("Ignoring malformed date filter")
		return nil
	}
	return &t
}

// pagination reads page/pageSize with bounds.
func pagination(r *http.Request) (page, pageSize int) {
	page = getIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = getIntParam(r, "pageSize", 20)
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// clientIP extracts the caller address for the audit trail.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// escapeCSV quotes a CSV field when it contains a delimiter, quote or
// newline.
func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
