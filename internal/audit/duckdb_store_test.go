// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

//go:build integration

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
)

func setupDuckDBStore(t *testing.T) *DuckDBStore {
	t.Helper()

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	store := NewDuckDBStore(conn)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return store
}

func saveEntry(t *testing.T, store *DuckDBStore, e Entry) {
	t.Helper()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := store.Save(context.Background(), &e); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestDuckDBStoreRoundTrip(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()

	saveEntry(t, store, Entry{
		Type:           EventTypeUpdate,
		UserID:         int64p(10),
		Username:       "zhang",
		CompanyID:      int64p(2),
		TargetType:     TargetRecord,
		TargetID:       int64p(42),
		Description:    `updated waste_record (location: "a" to "b")`,
		IP:             "203.0.113.7",
		UserAgent:      "ua",
		AdditionalData: []byte(`{"fields":1}`),
	})

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Username != "zhang" || e.TargetType != TargetRecord || *e.TargetID != 42 {
		t.Errorf("round trip lost fields: %+v", e)
	}
	if string(e.AdditionalData) != `{"fields":1}` {
		t.Errorf("additional_data = %q, want %q", e.AdditionalData, `{"fields":1}`)
	}
}

func TestDuckDBStoreCompanyScopeAndFilters(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()

	saveEntry(t, store, Entry{Type: EventTypeCreate, UserID: int64p(10), Username: "zhang", CompanyID: int64p(2), TargetType: TargetUnit, Description: "created unit"})
	saveEntry(t, store, Entry{Type: EventTypeDelete, UserID: int64p(20), Username: "li", CompanyID: int64p(3), TargetType: TargetUnit, Description: "deleted unit"})
	saveEntry(t, store, Entry{Type: EventTypeLoginFailure, Username: "13800009999", Description: "login failed"})

	count, err := store.Count(ctx, QueryFilter{CompanyID: int64p(2)})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("company scope count = %d, want 1", count)
	}

	entries, err := store.Query(ctx, QueryFilter{Types: []EventType{EventTypeLoginFailure}})
	if err != nil {
		t.Fatalf("query by type: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != nil {
		t.Errorf("login failure entry = %+v", entries)
	}

	entries, err = store.Query(ctx, QueryFilter{Keyword: "ZHA"})
	if err != nil {
		t.Fatalf("query by keyword: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "zhang" {
		t.Errorf("keyword match = %+v", entries)
	}
}

func TestDuckDBStoreRetentionDelete(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()

	saveEntry(t, store, Entry{Type: EventTypeCreate, Timestamp: time.Now().Add(-100 * 24 * time.Hour), Description: "old"})
	saveEntry(t, store, Entry{Type: EventTypeCreate, Description: "recent"})

	removed, err := store.Delete(ctx, time.Now().Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}

	count, _ := store.Count(ctx, QueryFilter{})
	if count != 1 {
		t.Errorf("remaining count = %d, want 1", count)
	}
}
