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

// CreateUnit inserts a unit after referential and uniqueness guards pass.
func (db *DB) CreateUnit(ctx context.Context, u *models.Unit) error {
	if _, err := db.GetCompany(ctx, u.CompanyID); err != nil {
		return err
	}
	if err := db.guardUnitNameUnique(ctx, u.Name, u.CompanyID, 0); err != nil {
		return err
	}

	now := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO units (name, company_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		u.Name, u.CompanyID, now, now)
	if err := row.Scan(&u.ID); err != nil {
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUnit fetches one unit by id.
func (db *DB) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, company_id, created_at, updated_at FROM units WHERE id = ?`, id)

	u := &models.Unit{}
	err := row.Scan(&u.ID, &u.Name, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read unit: %w", err)
	}
	return u, nil
}

// ListUnits returns units, company-pinned unless companyID is nil.
func (db *DB) ListUnits(ctx context.Context, companyID *int64) ([]models.Unit, error) {
	query := `SELECT id, name, company_id, created_at, updated_at FROM units`
	var args []interface{}
	if companyID != nil {
		query += ` WHERE company_id = ?`
		args = append(args, *companyID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// UpdateUnit renames a unit or moves it to another company. The caller has
// already run the policy-level company-transfer guard.
func (db *DB) UpdateUnit(ctx context.Context, u *models.Unit) error {
	if _, err := db.GetUnit(ctx, u.ID); err != nil {
		return err
	}
	if _, err := db.GetCompany(ctx, u.CompanyID); err != nil {
		return err
	}
	if err := db.guardUnitNameUnique(ctx, u.Name, u.CompanyID, u.ID); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE units SET name = ?, company_id = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.CompanyID, time.Now(), u.ID)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	return nil
}

// DeleteUnit hard-deletes a unit. Blocked while any user or waste record
// references it; the row is left intact on conflict.
func (db *DB) DeleteUnit(ctx context.Context, id int64) error {
	if _, err := db.GetUnit(ctx, id); err != nil {
		return err
	}

	var userCount int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE unit_id = ?`, id).Scan(&userCount); err != nil {
		return fmt.Errorf("deletion guard query failed: %w", err)
	}
	if userCount > 0 {
		return fmt.Errorf("unit still referenced by users: %w", ErrConflict)
	}

	var recordCount int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_records WHERE unit_id = ?`, id).Scan(&recordCount); err != nil {
		return fmt.Errorf("deletion guard query failed: %w", err)
	}
	if recordCount > 0 {
		return fmt.Errorf("unit still referenced by waste records: %w", ErrConflict)
	}

	_, err := db.conn.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	return nil
}

// guardUnitNameUnique rejects a duplicate unit name within one company.
func (db *DB) guardUnitNameUnique(ctx context.Context, name string, companyID, excludeID int64) error {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM units WHERE name = ? AND company_id = ? AND id != ?`,
		name, companyID, excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("unit name uniqueness check failed: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("unit name already in use within company: %w", ErrConflict)
	}
	return nil
}
