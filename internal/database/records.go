// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/hazledger/internal/models"
)

// CreateWasteRecord inserts a collection event. The caller has already fixed
// CompanyID (derived from the creator) and IsSupervised (derived from the
// creating role); this layer only verifies the references exist.
func (db *DB) CreateWasteRecord(ctx context.Context, r *models.WasteRecord) error {
	if err := db.guardRecordReferences(ctx, r); err != nil {
		return err
	}

	photosBefore, photosAfter, err := encodePhotoColumns(r)
	if err != nil {
		return err
	}

	now := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO waste_records (unit_id, waste_type_id, company_id, location, process,
			quantity, collection_start_time, photos_before, photos_after, creator_id,
			remarks, is_supervised, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		r.UnitID, r.WasteTypeID, r.CompanyID, r.Location, r.Process,
		r.Quantity, r.CollectionStartTime, photosBefore, photosAfter,
		r.CreatorID, nullString(r.Remarks), r.IsSupervised, now, now)
	if err := row.Scan(&r.ID); err != nil {
		return fmt.Errorf("failed to insert waste record: %w", err)
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetWasteRecord fetches one record with its denormalized display names.
func (db *DB) GetWasteRecord(ctx context.Context, id int64) (*models.WasteRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		recordSelect+` WHERE r.id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waste record: %w", err)
	}
	return rec, nil
}

// UpdateWasteRecord rewrites the mutable fields of a record. CompanyID,
// CreatorID and IsSupervised are never touched here; company reassignment
// has its own operation.
func (db *DB) UpdateWasteRecord(ctx context.Context, r *models.WasteRecord) error {
	if err := db.guardRecordReferences(ctx, r); err != nil {
		return err
	}

	photosBefore, photosAfter, err := encodePhotoColumns(r)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE waste_records SET unit_id = ?, waste_type_id = ?, location = ?, process = ?,
			quantity = ?, collection_start_time = ?, photos_before = ?, photos_after = ?,
			remarks = ?, updated_at = ? WHERE id = ?`,
		r.UnitID, r.WasteTypeID, r.Location, r.Process, r.Quantity, r.CollectionStartTime,
		photosBefore, photosAfter, nullString(r.Remarks), time.Now(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update waste record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignRecordCompany moves a record to another tenant. System admin only;
// enforced by the caller.
func (db *DB) ReassignRecordCompany(ctx context.Context, id, companyID int64) error {
	if _, err := db.GetCompany(ctx, companyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("company %d does not exist: %w", companyID, ErrConflict)
		}
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE waste_records SET company_id = ?, updated_at = ? WHERE id = ?`,
		companyID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to reassign waste record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWasteRecord hard-deletes a record. Nothing references records, so
// there is no guard beyond existence.
func (db *DB) DeleteWasteRecord(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM waste_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete waste record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// guardRecordReferences checks the unit, waste type and unit/company
// agreement for an insert or update.
func (db *DB) guardRecordReferences(ctx context.Context, r *models.WasteRecord) error {
	unit, err := db.GetUnit(ctx, r.UnitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("unit %d does not exist: %w", r.UnitID, ErrConflict)
		}
		return err
	}
	if unit.CompanyID != r.CompanyID {
		return fmt.Errorf("unit %d belongs to another company: %w", r.UnitID, ErrConflict)
	}
	if _, err := db.GetWasteType(ctx, r.WasteTypeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("waste type %d does not exist: %w", r.WasteTypeID, ErrConflict)
		}
		return err
	}
	return nil
}

func encodePhotoColumns(r *models.WasteRecord) (before, after string, err error) {
	before, err = models.EncodePhotoList(r.PhotosBefore)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode photo list: %w", err)
	}
	after, err = models.EncodePhotoList(r.PhotosAfter)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode photo list: %w", err)
	}
	return before, after, nil
}

const recordSelect = `SELECT r.id, r.unit_id, r.waste_type_id, r.company_id, r.location,
	r.process, r.quantity, r.collection_start_time, r.photos_before, r.photos_after,
	r.creator_id, r.remarks, r.is_supervised, r.created_at, r.updated_at,
	COALESCE(u.name, ''), COALESCE(t.name, ''), COALESCE(c.username, '')
	FROM waste_records r
	LEFT JOIN units u ON u.id = r.unit_id
	LEFT JOIN waste_types t ON t.id = r.waste_type_id
	LEFT JOIN users c ON c.id = r.creator_id`

func scanRecord(row rowScanner) (*models.WasteRecord, error) {
	r := &models.WasteRecord{}
	var photosBefore, photosAfter, remarks sql.NullString
	err := row.Scan(&r.ID, &r.UnitID, &r.WasteTypeID, &r.CompanyID, &r.Location,
		&r.Process, &r.Quantity, &r.CollectionStartTime, &photosBefore, &photosAfter,
		&r.CreatorID, &remarks, &r.IsSupervised, &r.CreatedAt, &r.UpdatedAt,
		&r.UnitName, &r.WasteTypeName, &r.CreatorName)
	if err != nil {
		return nil, err
	}
	r.PhotosBefore = models.DecodePhotoList(photosBefore.String)
	r.PhotosAfter = models.DecodePhotoList(photosAfter.String)
	r.Remarks = remarks.String
	return r, nil
}
