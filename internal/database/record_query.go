// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

// RecordFilter is the optional, caller-supplied narrowing on top of the
// mandatory visibility scope. Nil / zero fields are inert.
type RecordFilter struct {
	WasteTypeID *int64
	QuantityMin *float64
	QuantityMax *float64
	Location    string
	Process     string

	// StartDate and EndDate bound the date component of
	// collection_start_time, inclusive on both ends.
	StartDate *time.Time
	EndDate   *time.Time
}

// RecordPage is one page of a scoped record listing.
type RecordPage struct {
	Records  []models.WasteRecord
	Total    int64
	Page     int
	PageSize int
}

// HasMore reports whether pages remain after this one.
func (p RecordPage) HasMore() bool {
	return int64(p.Page*p.PageSize) < p.Total
}

// buildRecordConditions translates the visibility scope plus optional
// filters into WHERE clauses and args. Pure; tested without a database.
func buildRecordConditions(scope policy.RecordVisibility, filter RecordFilter) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	if scope.CompanyID != nil {
		conds = append(conds, "r.company_id = ?")
		args = append(args, *scope.CompanyID)
	}
	if scope.UnitID != nil {
		conds = append(conds, "r.unit_id = ?")
		args = append(args, *scope.UnitID)
	}
	if scope.CreatorID != nil {
		conds = append(conds, "r.creator_id = ?")
		args = append(args, *scope.CreatorID)
	}
	if scope.Since != nil {
		conds = append(conds, "r.created_at >= ?")
		args = append(args, *scope.Since)
	}
	if scope.Supervised == policy.SupervisedExcluded {
		conds = append(conds, "r.is_supervised = FALSE")
	}

	if filter.WasteTypeID != nil {
		conds = append(conds, "r.waste_type_id = ?")
		args = append(args, *filter.WasteTypeID)
	}
	if filter.QuantityMin != nil {
		conds = append(conds, "r.quantity >= ?")
		args = append(args, *filter.QuantityMin)
	}
	if filter.QuantityMax != nil {
		conds = append(conds, "r.quantity <= ?")
		args = append(args, *filter.QuantityMax)
	}
	if filter.Location != "" {
		conds = append(conds, "r.location ILIKE ?")
		args = append(args, "%"+filter.Location+"%")
	}
	if filter.Process != "" {
		conds = append(conds, "r.process ILIKE ?")
		args = append(args, "%"+filter.Process+"%")
	}
	if filter.StartDate != nil {
		conds = append(conds, "CAST(r.collection_start_time AS DATE) >= CAST(? AS DATE)")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conds = append(conds, "CAST(r.collection_start_time AS DATE) <= CAST(? AS DATE)")
		args = append(args, *filter.EndDate)
	}

	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// ListWasteRecords runs a scoped, filtered, paginated listing. Ordering is
// newest first with id as the tie-break so pagination is stable across
// identical timestamps.
func (db *DB) ListWasteRecords(ctx context.Context, scope policy.RecordVisibility, filter RecordFilter, page, pageSize int) (*RecordPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	conds, args := buildRecordConditions(scope, filter)
	where := whereClause(conds)

	var total int64
	countQuery := `SELECT COUNT(*) FROM waste_records r` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count waste records: %w", err)
	}

	query := recordSelect + where + ` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	listArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	rows, err := db.conn.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list waste records: %w", err)
	}
	defer rows.Close()

	records := []models.WasteRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waste record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &RecordPage{Records: records, Total: total, Page: page, PageSize: pageSize}, nil
}

// ExportWasteRecords runs the same scoped, filtered query without
// pagination. The scope is identical to the listing path so an export can
// never show rows the list would hide.
func (db *DB) ExportWasteRecords(ctx context.Context, scope policy.RecordVisibility, filter RecordFilter) ([]models.WasteRecord, error) {
	conds, args := buildRecordConditions(scope, filter)
	query := recordSelect + whereClause(conds) + ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export waste records: %w", err)
	}
	defer rows.Close()

	var records []models.WasteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waste record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
