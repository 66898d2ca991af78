// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package database

import (
	"context"
	"fmt"
)

// createSchema creates sequences, tables and indexes. Idempotent; runs at
// every startup.
func (db *DB) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_companies START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_units START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_waste_types START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_users START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_waste_records START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_feedback START 1`,

		`CREATE TABLE IF NOT EXISTS companies (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_companies'),
			name TEXT NOT NULL,
			code TEXT,
			status INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS units (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_units'),
			name TEXT NOT NULL,
			company_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS waste_types (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_waste_types'),
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
			username TEXT NOT NULL,
			phone TEXT NOT NULL,
			password_hash TEXT,
			role INTEGER NOT NULL,
			unit_id BIGINT,
			company_id BIGINT NOT NULL,
			status INTEGER NOT NULL DEFAULT 1,
			can_view_logs BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS waste_records (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_waste_records'),
			unit_id BIGINT NOT NULL,
			waste_type_id BIGINT NOT NULL,
			company_id BIGINT NOT NULL,
			location TEXT NOT NULL,
			process TEXT NOT NULL,
			quantity DOUBLE,
			collection_start_time TIMESTAMP NOT NULL,
			photos_before TEXT,
			photos_after TEXT,
			creator_id BIGINT NOT NULL,
			remarks TEXT,
			is_supervised BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS feedback (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_feedback'),
			user_id BIGINT NOT NULL,
			company_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			type TEXT,
			priority TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			admin_id BIGINT,
			admin_reply TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for the common scoped query patterns
		`CREATE INDEX IF NOT EXISTS idx_units_company ON units(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_unit ON users(unit_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_company ON waste_records(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_unit ON waste_records(unit_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_creator ON waste_records(creator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created ON waste_records(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_type ON waste_records(waste_type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_company ON feedback(company_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
