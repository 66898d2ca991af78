// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DuckDBStore implements Store on the shared DuckDB connection. Durable
// storage suitable for production use.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an existing connection. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the operation_logs table if needed. Called once at
// startup.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS operation_logs (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			type TEXT NOT NULL,
			user_id BIGINT,
			username TEXT,
			company_id BIGINT,
			target_type TEXT,
			target_id BIGINT,
			description TEXT NOT NULL,
			ip TEXT,
			user_agent TEXT,
			additional_data JSON
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oplogs_timestamp ON operation_logs(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_oplogs_type ON operation_logs(type)`,
		`CREATE INDEX IF NOT EXISTS idx_oplogs_company ON operation_logs(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_oplogs_user ON operation_logs(user_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create operation log schema: %w", err)
		}
	}
	return nil
}

// Save appends one entry.
func (s *DuckDBStore) Save(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	var additional interface{}
	if len(entry.AdditionalData) > 0 {
		additional = string(entry.AdditionalData)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operation_logs (id, timestamp, type, user_id, username, company_id,
			target_type, target_id, description, ip, user_agent, additional_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, string(entry.Type), entry.UserID, entry.Username,
		entry.CompanyID, entry.TargetType, entry.TargetID, entry.Description,
		entry.IP, entry.UserAgent, additional)
	if err != nil {
		return fmt.Errorf("failed to save operation log entry: %w", err)
	}
	return nil
}

// buildConditions translates the filter into WHERE clauses and args.
func buildConditions(filter QueryFilter) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CompanyID != nil {
		conds = append(conds, "company_id = ?")
		args = append(args, *filter.CompanyID)
	}
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Keyword != "" {
		conds = append(conds, "username ILIKE ?")
		args = append(args, "%"+filter.Keyword+"%")
	}
	if filter.TargetType != "" {
		conds = append(conds, "target_type = ?")
		args = append(args, filter.TargetType)
	}
	if filter.SearchText != "" {
		conds = append(conds, "description ILIKE ?")
		args = append(args, "%"+filter.SearchText+"%")
	}
	if filter.StartTime != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}

	return conds, args
}

// Query retrieves matching entries newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	conds, args := buildConditions(filter)

	// The JSON column is cast to text so it scans as a plain string; the
	// driver otherwise materializes JSON values as maps.
	query := `SELECT id, timestamp, type, user_id, username, company_id, target_type,
		target_id, description, ip, user_agent, CAST(additional_data AS VARCHAR) FROM operation_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ string
		var username, targetType, ip, userAgent, additional sql.NullString
		err := rows.Scan(&e.ID, &e.Timestamp, &typ, &e.UserID, &username, &e.CompanyID,
			&targetType, &e.TargetID, &e.Description, &ip, &userAgent, &additional)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation log entry: %w", err)
		}
		e.Type = EventType(typ)
		e.Username = username.String
		e.TargetType = targetType.String
		e.IP = ip.String
		e.UserAgent = userAgent.String
		if additional.Valid && additional.String != "" {
			e.AdditionalData = []byte(additional.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of matching entries.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	conds, args := buildConditions(filter)

	query := `SELECT COUNT(*) FROM operation_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operation logs: %w", err)
	}
	return count, nil
}

// Delete removes entries older than the cutoff.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM operation_logs WHERE timestamp < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge operation logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged operation logs: %w", err)
	}
	return n, nil
}
