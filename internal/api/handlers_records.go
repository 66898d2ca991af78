// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
	"github.com/tomtom215/hazledger/internal/upload"
)

// multipartMemory bounds the in-memory portion of multipart parsing; larger
// parts spill to temp files.
const multipartMemory = 32 << 20

type recordListResponse struct {
	Records  []models.WasteRecord `json:"records"`
	PageInfo models.PageInfo      `json:"page_info"`
}

// recordListOptions translates query parameters into the policy knobs.
func recordListOptions(r *http.Request) policy.ListOptions {
	return policy.ListOptions{
		UnitID:         getInt64Param(r, "unit_id"),
		ShowSupervised: getBoolParam(r, "show_supervised"),
	}
}

// recordFilter translates query parameters into the storage filter.
// Malformed values are ignored, matching the lenient filter contract.
func recordFilter(r *http.Request) database.RecordFilter {
	f := database.RecordFilter{
		Location:  r.URL.Query().Get("location"),
		Process:   r.URL.Query().Get("process"),
		StartDate: getDateParam(r, "start_date"),
		EndDate:   getDateParam(r, "end_date"),
	}
	f.WasteTypeID = getInt64Param(r, "waste_type_id")
	f.QuantityMin = getFloatParam(r, "quantity_min")
	f.QuantityMax = getFloatParam(r, "quantity_max")
	return f
}

// ListWasteRecords returns records inside the caller's visibility scope with
// optional filters and pagination.
func (h *Handler) ListWasteRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	scope, err := policy.RecordReadScope(p, recordListOptions(r), h.now())
	if err != nil {
		respondPolicyDenied(w, err)
		return
	}

	page, pageSize := pagination(r)
	result, err := h.db.ListWasteRecords(r.Context(), scope, recordFilter(r), page, pageSize)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, recordListResponse{
		Records: result.Records,
		PageInfo: models.PageInfo{
			Page:     result.Page,
			PageSize: result.PageSize,
			Total:    result.Total,
			HasMore:  result.HasMore(),
		},
	})
}

func (h *Handler) GetWasteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	rec, err := h.db.GetWasteRecord(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	scope, err := policy.RecordReadScope(p, policy.ListOptions{}, h.now())
	if err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if !scope.Matches(rec) {
		// Invisible rows read as absent, not forbidden, so existence is
		// not leaked across scopes.
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "resource not found", nil)
		return
	}
	respondSuccess(w, http.StatusOK, rec)
}

// CreateWasteRecord files a new collection event from a multipart form with
// photo evidence. The record's company is the unit's owning company and the
// supervised flag is derived from the creator's role; neither is client
// input.
func (h *Handler) CreateWasteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid multipart form", nil)
		return
	}

	unitID, err := formInt64(r, "unit_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "unit_id is required", nil)
		return
	}
	wasteTypeID, err := formInt64(r, "waste_type_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "waste_type_id is required", nil)
		return
	}
	location := strings.TrimSpace(r.FormValue("location"))
	process := strings.TrimSpace(r.FormValue("process"))
	if location == "" || process == "" {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "location and process are required", nil)
		return
	}
	startTime, err := formTime(r, "collection_start_time")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "collection_start_time is required", nil)
		return
	}

	unit, err := h.db.GetUnit(r.Context(), unitID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanCreateRecord(p, unitID, unit.CompanyID); err != nil {
		respondPolicyDenied(w, err)
		return
	}

	photosBefore, err := h.savePhotos(r.MultipartForm.File["photos_before"])
	if err != nil {
		respondUploadError(w, err)
		return
	}
	photosAfter, err := h.savePhotos(r.MultipartForm.File["photos_after"])
	if err != nil {
		h.uploads.Remove(photosBefore)
		respondUploadError(w, err)
		return
	}

	rec := &models.WasteRecord{
		UnitID:              unitID,
		WasteTypeID:         wasteTypeID,
		CompanyID:           unit.CompanyID,
		Location:            location,
		Process:             process,
		Quantity:            formFloat(r, "quantity"),
		CollectionStartTime: startTime,
		PhotosBefore:        photosBefore,
		PhotosAfter:         photosAfter,
		CreatorID:           p.UserID,
		Remarks:             strings.TrimSpace(r.FormValue("remarks")),
		IsSupervised:        policy.SupervisedFlagForCreator(p.Role),
	}
	if err := h.db.CreateWasteRecord(r.Context(), rec); err != nil {
		h.uploads.Remove(photosBefore)
		h.uploads.Remove(photosAfter)
		respondStorageError(w, err)
		return
	}

	h.recorder.RecordCreate(r.Context(), h.actor(r, p), audit.TargetRecord, rec.ID, recordLabel(rec))
	respondSuccess(w, http.StatusCreated, rec)
}

// UpdateWasteRecord edits a record the caller can currently see. New photos
// are merged in; photos named in photos_to_remove_before/_after are dropped
// from the record and their files deleted after the row update commits.
func (h *Handler) UpdateWasteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid multipart form", nil)
		return
	}

	rec, err := h.db.GetWasteRecord(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanMutateRecord(p, rec, h.now()); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	before := *rec

	if unitID, err := formInt64(r, "unit_id"); err == nil {
		unit, err := h.db.GetUnit(r.Context(), unitID)
		if err != nil {
			respondStorageError(w, err)
			return
		}
		if err := policy.CanCreateRecord(p, unitID, unit.CompanyID); err != nil {
			respondPolicyDenied(w, err)
			return
		}
		rec.UnitID = unitID
	}
	if wasteTypeID, err := formInt64(r, "waste_type_id"); err == nil {
		rec.WasteTypeID = wasteTypeID
	}
	if v := strings.TrimSpace(r.FormValue("location")); v != "" {
		rec.Location = v
	}
	if v := strings.TrimSpace(r.FormValue("process")); v != "" {
		rec.Process = v
	}
	if v := formFloat(r, "quantity"); v != nil {
		rec.Quantity = v
	}
	if t, err := formTime(r, "collection_start_time"); err == nil {
		rec.CollectionStartTime = t
	}
	if r.Form.Has("remarks") {
		rec.Remarks = strings.TrimSpace(r.FormValue("remarks"))
	}

	// Company reassignment is the one field on this surface reserved for
	// the system admin.
	var reassignTo *int64
	if companyID, err := formInt64(r, "company_id"); err == nil && companyID != rec.CompanyID {
		if !policy.CanReassignRecordCompany(p) {
			respondError(w, http.StatusForbidden, models.ErrCodeAuthorization, "only a system administrator can reassign a record's company", nil)
			return
		}
		reassignTo = &companyID
	}

	// Only paths in the record's own lists are eligible for file removal;
	// anything else in the request is ignored.
	removeBefore := models.IntersectPhotoPaths(rec.PhotosBefore, r.Form["photos_to_remove_before"])
	removeAfter := models.IntersectPhotoPaths(rec.PhotosAfter, r.Form["photos_to_remove_after"])

	addedBefore, err := h.savePhotos(r.MultipartForm.File["photos_before"])
	if err != nil {
		respondUploadError(w, err)
		return
	}
	addedAfter, err := h.savePhotos(r.MultipartForm.File["photos_after"])
	if err != nil {
		h.uploads.Remove(addedBefore)
		respondUploadError(w, err)
		return
	}

	rec.PhotosBefore = models.MergePhotoPaths(models.RemovePhotoPaths(rec.PhotosBefore, removeBefore), addedBefore)
	rec.PhotosAfter = models.MergePhotoPaths(models.RemovePhotoPaths(rec.PhotosAfter, removeAfter), addedAfter)

	if err := h.db.UpdateWasteRecord(r.Context(), rec); err != nil {
		h.uploads.Remove(addedBefore)
		h.uploads.Remove(addedAfter)
		respondStorageError(w, err)
		return
	}
	if reassignTo != nil {
		if err := h.db.ReassignRecordCompany(r.Context(), id, *reassignTo); err != nil {
			respondStorageError(w, err)
			return
		}
	}

	// Removed files go only after the row no longer references them.
	h.uploads.Remove(removeBefore)
	h.uploads.Remove(removeAfter)

	if changes := recordChanges(&before, rec, reassignTo); len(changes) > 0 {
		h.recorder.RecordUpdate(r.Context(), h.actor(r, p), audit.TargetRecord, id, changes)
	}

	updated, err := h.db.GetWasteRecord(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteWasteRecord hard-deletes a record the caller can currently see and
// removes its photo files.
func (h *Handler) DeleteWasteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	rec, err := h.db.GetWasteRecord(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	if err := policy.CanMutateRecord(p, rec, h.now()); err != nil {
		respondPolicyDenied(w, err)
		return
	}
	if err := h.db.DeleteWasteRecord(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	h.uploads.Remove(rec.PhotosBefore)
	h.uploads.Remove(rec.PhotosAfter)

	h.recorder.RecordDelete(r.Context(), h.actor(r, p), audit.TargetRecord, id, recordLabel(rec))
	respondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

// ExportWasteRecords streams the caller's visible records as CSV, honoring
// the same scope and filters as the listing endpoint.
func (h *Handler) ExportWasteRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	scope, err := policy.RecordReadScope(p, recordListOptions(r), h.now())
	if err != nil {
		respondPolicyDenied(w, err)
		return
	}

	records, err := h.db.ExportWasteRecords(r.Context(), scope, recordFilter(r))
	if err != nil {
		respondStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=waste-records-%s.csv", h.now().Format("2006-01-02")))

	var b strings.Builder
	b.WriteString("id,created_at,unit,waste_type,location,process,quantity,collection_start_time,creator,supervised,remarks\n")
	for i := range records {
		rec := &records[i]
		quantity := ""
		if rec.Quantity != nil {
			quantity = strconv.FormatFloat(*rec.Quantity, 'f', -1, 64)
		}
		fields := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.CreatedAt.Format(time.RFC3339),
			escapeCSV(rec.UnitName),
			escapeCSV(rec.WasteTypeName),
			escapeCSV(rec.Location),
			escapeCSV(rec.Process),
			quantity,
			rec.CollectionStartTime.Format(time.RFC3339),
			escapeCSV(rec.CreatorName),
			strconv.FormatBool(rec.IsSupervised),
			escapeCSV(rec.Remarks),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	_, _ = w.Write([]byte(b.String()))
}

// savePhotos stores each uploaded part, unwinding already-saved files when a
// later one is rejected.
func (h *Handler) savePhotos(headers []*multipart.FileHeader) ([]string, error) {
	var saved []string
	for _, header := range headers {
		path, err := h.uploads.Save(header)
		if err != nil {
			h.uploads.Remove(saved)
			return nil, err
		}
		saved = append(saved, path)
	}
	return saved, nil
}

// respondUploadError maps upload rejections to 400; anything else is an
// internal storage failure.
func respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, upload.ErrBadExtension),
		errors.Is(err, upload.ErrBadContent),
		errors.Is(err, upload.ErrEmptyFile):
		respondError(w, http.StatusBadRequest, models.ErrCodeUpload, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, models.ErrCodeUpload, "failed to store upload", err)
	}
}

func recordLabel(rec *models.WasteRecord) string {
	return fmt.Sprintf("record at %s (unit %d)", rec.Location, rec.UnitID)
}

// recordChanges builds the field-level update diff for the operation log.
func recordChanges(before, after *models.WasteRecord, reassignTo *int64) []audit.Change {
	var changes []audit.Change
	changes = audit.DiffField(changes, "unit_id", strconv.FormatInt(before.UnitID, 10), strconv.FormatInt(after.UnitID, 10))
	changes = audit.DiffField(changes, "waste_type_id", strconv.FormatInt(before.WasteTypeID, 10), strconv.FormatInt(after.WasteTypeID, 10))
	changes = audit.DiffField(changes, "location", before.Location, after.Location)
	changes = audit.DiffField(changes, "process", before.Process, after.Process)
	changes = audit.DiffField(changes, "quantity", formatQuantity(before.Quantity), formatQuantity(after.Quantity))
	changes = audit.DiffField(changes, "collection_start_time",
		before.CollectionStartTime.Format(time.RFC3339), after.CollectionStartTime.Format(time.RFC3339))
	changes = audit.DiffField(changes, "remarks", before.Remarks, after.Remarks)
	changes = audit.DiffField(changes, "photos_before", strings.Join(before.PhotosBefore, ","), strings.Join(after.PhotosBefore, ","))
	changes = audit.DiffField(changes, "photos_after", strings.Join(before.PhotosAfter, ","), strings.Join(after.PhotosAfter, ","))
	if reassignTo != nil {
		changes = audit.DiffField(changes, "company_id", strconv.FormatInt(before.CompanyID, 10), strconv.FormatInt(*reassignTo, 10))
	}
	return changes
}

func formatQuantity(q *float64) string {
	if q == nil {
		return ""
	}
	return strconv.FormatFloat(*q, 'f', -1, 64)
}

func formInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
}

func formFloat(r *http.Request, key string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
	if err != nil {
		return nil
	}
	return &f
}

// formTime accepts RFC 3339 or the webform-friendly layouts a date-time
// widget produces.
func formTime(r *http.Request, key string) (time.Time, error) {
	value := strings.TrimSpace(r.FormValue(key))
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}
