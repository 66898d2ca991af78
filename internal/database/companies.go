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

// CreateCompany inserts a new company after the uniqueness guards pass.
func (db *DB) CreateCompany(ctx context.Context, c *models.Company) error {
	if err := db.guardCompanyNameUnique(ctx, c.Name, 0); err != nil {
		return err
	}
	if err := db.guardCompanyCodeUnique(ctx, c.Code, 0); err != nil {
		return err
	}

	now := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO companies (name, code, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		c.Name, nullString(c.Code), models.StatusActive, now, now)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	c.Status = models.StatusActive
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetCompany fetches one active company by id.
func (db *DB) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(code, ''), status, created_at, updated_at
		 FROM companies WHERE id = ? AND status = ?`, id, models.StatusActive)

	c := &models.Company{}
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read company: %w", err)
	}
	return c, nil
}

// ListActiveCompanies returns all active companies ordered by creation time.
func (db *DB) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, COALESCE(code, ''), status, created_at, updated_at
		 FROM companies WHERE status = ? ORDER BY created_at DESC, id DESC`, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// UpdateCompany updates name/code after the uniqueness guards pass,
// excluding the row being updated.
func (db *DB) UpdateCompany(ctx context.Context, c *models.Company) error {
	if _, err := db.GetCompany(ctx, c.ID); err != nil {
		return err
	}
	if err := db.guardCompanyNameUnique(ctx, c.Name, c.ID); err != nil {
		return err
	}
	if err := db.guardCompanyCodeUnique(ctx, c.Code, c.ID); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE companies SET name = ?, code = ?, updated_at = ? WHERE id = ?`,
		c.Name, nullString(c.Code), time.Now(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// DeleteCompany soft-deletes a company by flipping its status. Blocked while
// the company owns any unit, user or waste record.
func (db *DB) DeleteCompany(ctx context.Context, id int64) error {
	if _, err := db.GetCompany(ctx, id); err != nil {
		return err
	}

	guards := []struct {
		query  string
		reason string
	}{
		{`SELECT COUNT(*) FROM units WHERE company_id = ?`, "company still owns units"},
		{`SELECT COUNT(*) FROM users WHERE company_id = ?`, "company still owns users"},
		{`SELECT COUNT(*) FROM waste_records WHERE company_id = ?`, "company still owns waste records"},
	}
	for _, g := range guards {
		var count int64
		if err := db.conn.QueryRowContext(ctx, g.query, id).Scan(&count); err != nil {
			return fmt.Errorf("deletion guard query failed: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%s: %w", g.reason, ErrConflict)
		}
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE companies SET status = ?, updated_at = ? WHERE id = ?`,
		models.StatusInactive, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete company: %w", err)
	}
	return nil
}

// CompanyNameExists reports whether an active company other than excludeID
// carries the name.
func (db *DB) CompanyNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE name = ? AND status = ? AND id != ?`,
		name, models.StatusActive, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("name existence check failed: %w", err)
	}
	return count > 0, nil
}

// CompanyCodeExists reports whether an active company other than excludeID
// carries the code. The empty code is never considered taken.
func (db *DB) CompanyCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	if code == "" {
		return false, nil
	}
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE code = ? AND status = ? AND id != ?`,
		code, models.StatusActive, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("code existence check failed: %w", err)
	}
	return count > 0, nil
}

// GetCompanyStats aggregates unit/user/record counts for one company.
func (db *DB) GetCompanyStats(ctx context.Context, id int64) (*models.CompanyStats, error) {
	if _, err := db.GetCompany(ctx, id); err != nil {
		return nil, err
	}

	stats := &models.CompanyStats{CompanyID: id}
	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM units WHERE company_id = ?`, &stats.UnitCount},
		{`SELECT COUNT(*) FROM users WHERE company_id = ?`, &stats.UserCount},
		{`SELECT COUNT(*) FROM waste_records WHERE company_id = ?`, &stats.RecordCount},
	}
	for _, c := range counts {
		if err := db.conn.QueryRowContext(ctx, c.query, id).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats query failed: %w", err)
		}
	}
	return stats, nil
}

// guardCompanyNameUnique rejects a duplicate name among active companies.
func (db *DB) guardCompanyNameUnique(ctx context.Context, name string, excludeID int64) error {
	exists, err := db.CompanyNameExists(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("company name already in use: %w", ErrConflict)
	}
	return nil
}

// guardCompanyCodeUnique rejects a duplicate code among active companies.
func (db *DB) guardCompanyCodeUnique(ctx context.Context, code string, excludeID int64) error {
	exists, err := db.CompanyCodeExists(ctx, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("company code already in use: %w", ErrConflict)
	}
	return nil
}

// nullString converts an empty string to NULL for optional columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
