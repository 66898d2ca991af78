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

const userColumns = `id, username, phone, password_hash, role, unit_id, company_id,
	status, can_view_logs, created_at, updated_at, last_login_at`

// CreateUser inserts an account. Phone numbers are globally unique and the
// target company and unit (if set) must exist.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	if err := db.guardPhoneUnique(ctx, u.Phone, 0); err != nil {
		return err
	}
	if err := db.guardUserReferences(ctx, u); err != nil {
		return err
	}

	now := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (username, phone, password_hash, role, unit_id, company_id, status, can_view_logs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Username, u.Phone, nullString(u.PasswordHash), int(u.Role), u.UnitID,
		u.CompanyID, models.StatusActive, u.CanViewLogs, now, now)
	if err := row.Scan(&u.ID); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.Status = models.StatusActive
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUser fetches one account by id.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByPhone fetches the account carrying the given login phone.
// Inactive accounts are returned too; the caller decides whether a
// disabled account may authenticate.
func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
	return scanUser(row)
}

// ListUsers returns accounts, optionally restricted to one company. A nil
// companyID means no tenant restriction (system admin scope).
func (db *DB) ListUsers(ctx context.Context, companyID *int64) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if companyID != nil {
		query += ` WHERE company_id = ?`
		args = append(args, *companyID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser rewrites the mutable account fields. An empty PasswordHash
// keeps the stored hash; password changes go through UpdateUserPassword.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	if _, err := db.GetUser(ctx, u.ID); err != nil {
		return err
	}
	if err := db.guardPhoneUnique(ctx, u.Phone, u.ID); err != nil {
		return err
	}
	if err := db.guardUserReferences(ctx, u); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, phone = ?, role = ?, unit_id = ?, company_id = ?, can_view_logs = ?, updated_at = ? WHERE id = ?`,
		u.Username, u.Phone, int(u.Role), u.UnitID, u.CompanyID, u.CanViewLogs, time.Now(), u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateUserProfile rewrites only the self-service fields.
func (db *DB) UpdateUserProfile(ctx context.Context, id int64, username, phone string) error {
	if _, err := db.GetUser(ctx, id); err != nil {
		return err
	}
	if err := db.guardPhoneUnique(ctx, phone, id); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, phone = ?, updated_at = ? WHERE id = ?`,
		username, phone, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateUserPassword stores a new password hash.
func (db *DB) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserStatus enables or disables an account.
func (db *DB) SetUserStatus(ctx context.Context, id int64, status int) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserLogPermission toggles the per-account operation-log grant.
func (db *DB) SetUserLogPermission(ctx context.Context, id int64, canView bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET can_view_logs = ?, updated_at = ? WHERE id = ?`,
		canView, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update log permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin records a successful authentication.
func (db *DB) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to record login time: %w", err)
	}
	return nil
}

// DeleteUser hard-deletes an account. Blocked while the account has
// authored waste records; those must be deleted or reassigned first.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	if _, err := db.GetUser(ctx, id); err != nil {
		return err
	}

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_records WHERE creator_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("deletion guard query failed: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user still owns waste records: %w", ErrConflict)
	}

	_, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// guardPhoneUnique rejects a phone number already carried by another account.
func (db *DB) guardPhoneUnique(ctx context.Context, phone string, excludeID int64) error {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE phone = ? AND id != ?`,
		phone, excludeID).Scan(&count)
	if err != nil {
		return fmt.Errorf("phone uniqueness check failed: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("phone number already in use: %w", ErrConflict)
	}
	return nil
}

// guardUserReferences checks that the account's company exists and, when a
// unit is assigned, that the unit exists and belongs to the same company.
func (db *DB) guardUserReferences(ctx context.Context, u *models.User) error {
	if _, err := db.GetCompany(ctx, u.CompanyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("company %d does not exist: %w", u.CompanyID, ErrConflict)
		}
		return err
	}
	if u.UnitID == nil {
		return nil
	}
	unit, err := db.GetUnit(ctx, *u.UnitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("unit %d does not exist: %w", *u.UnitID, ErrConflict)
		}
		return err
	}
	if unit.CompanyID != u.CompanyID {
		return fmt.Errorf("unit %d belongs to another company: %w", *u.UnitID, ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var hash sql.NullString
	var role int
	err := row.Scan(&u.ID, &u.Username, &u.Phone, &hash, &role, &u.UnitID,
		&u.CompanyID, &u.Status, &u.CanViewLogs, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	u.PasswordHash = hash.String
	u.Role = models.Role(role)
	return u, nil
}
