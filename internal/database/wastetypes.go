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

// CreateWasteType inserts a taxonomy entry. Names are globally unique.
func (db *DB) CreateWasteType(ctx context.Context, wt *models.WasteType) error {
	if err := db.guardWasteTypeNameUnique(ctx, wt.Name, 0); err != nil {
		return err
	}

	now := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO waste_types (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`,
		wt.Name, now, now)
	if err := row.Scan(&wt.ID); err != nil {
		return fmt.Errorf("failed to insert waste type: %w", err)
	}
	wt.CreatedAt = now
	wt.UpdatedAt = now
	return nil
}

// GetWasteType fetches one waste type by id.
func (db *DB) GetWasteType(ctx context.Context, id int64) (*models.WasteType, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM waste_types WHERE id = ?`, id)

	wt := &models.WasteType{}
	err := row.Scan(&wt.ID, &wt.Name, &wt.CreatedAt, &wt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waste type: %w", err)
	}
	return wt, nil
}

// ListWasteTypes returns the full taxonomy. It is small and global.
func (db *DB) ListWasteTypes(ctx context.Context) ([]models.WasteType, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM waste_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list waste types: %w", err)
	}
	defer rows.Close()

	var types []models.WasteType
	for rows.Next() {
		var wt models.WasteType
		if err := rows.Scan(&wt.ID, &wt.Name, &wt.CreatedAt, &wt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waste type: %w", err)
		}
		types = append(types, wt)
	}
	return types, rows.Err()
}

// UpdateWasteType renames a taxonomy entry.
func (db *DB) UpdateWasteType(ctx context.Context, wt *models.WasteType) error {
	if _, err := db.GetWasteType(ctx, wt.ID); err != nil {
		return err
	}
	if err := db.guardWasteTypeNameUnique(ctx, wt.Name, wt.ID); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE waste_types SET name = ?, updated_at = ? WHERE id = ?`,
		wt.Name, time.Now(), wt.ID)
	if err != nil {
		return fmt.Errorf("failed to update waste type: %w", err)
	}
	return nil
}

// DeleteWasteType hard-deletes a taxonomy entry. Blocked while any waste
// record references it.
func (db *DB) DeleteWasteType(ctx context.Context, id int64) error {
	if _, err := db.GetWasteType(ctx, id); err != nil {
		return err
	}

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_records WHERE waste_type_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("deletion guard query failed: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("waste type still referenced by waste records: %w", ErrConflict)
	}

	_, err := db.conn.ExecContext(ctx, `DELETE FROM waste_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete waste type: %w", err)
	}
	return nil
}

// guardWasteTypeNameUnique rejects a duplicate waste type name globally.
func (db *DB) guardWasteTypeNameUnique(ctx context.Context, name string, excludeID int64) error {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waste_types WHERE name = ? AND id != ?`,
		name, excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("waste type name uniqueness check failed: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("waste type name already in use: %w", ErrConflict)
	}
	return nil
}
