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

const feedbackColumns = `id, user_id, company_id, title, description, type,
	priority, status, admin_id, admin_reply, created_at, updated_at`

// CreateFeedback files a report. CompanyID is fixed from the filing user by
// the caller.
func (db *DB) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	now := time.Now()
	f.Status = models.FeedbackStatusPending
	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO feedback (user_id, company_id, title, description, type, priority, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		f.UserID, f.CompanyID, f.Title, f.Description,
		nullString(f.Type), nullString(f.Priority), f.Status, now, now)
	if err := row.Scan(&f.ID); err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// GetFeedback fetches one report by id.
func (db *DB) GetFeedback(ctx context.Context, id int64) (*models.Feedback, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = ?`, id)

	f, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback: %w", err)
	}
	return f, nil
}

// ListFeedback returns reports newest first, optionally restricted to one
// company. A nil companyID means no tenant restriction (system admin scope).
func (db *DB) ListFeedback(ctx context.Context, companyID *int64) ([]models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback`
	var args []interface{}
	if companyID != nil {
		query += ` WHERE company_id = ?`
		args = append(args, *companyID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var reports []models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		reports = append(reports, *f)
	}
	return reports, rows.Err()
}

// UpdateFeedbackStatus records an admin reply and status transition.
func (db *DB) UpdateFeedbackStatus(ctx context.Context, id, adminID int64, status, reply string) error {
	if !models.ValidFeedbackStatus(status) {
		return fmt.Errorf("unknown feedback status %q: %w", status, ErrConflict)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE feedback SET status = ?, admin_id = ?, admin_reply = ?, updated_at = ? WHERE id = ?`,
		status, adminID, nullString(reply), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFeedback(row rowScanner) (*models.Feedback, error) {
	f := &models.Feedback{}
	var typ, priority, reply sql.NullString
	err := row.Scan(&f.ID, &f.UserID, &f.CompanyID, &f.Title, &f.Description,
		&typ, &priority, &f.Status, &f.AdminID, &reply, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Type = typ.String
	f.Priority = priority.String
	f.AdminReply = reply.String
	return f, nil
}
