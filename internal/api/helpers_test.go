// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package api

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/hazledger/internal/database"
)

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "loading dock", "loading dock"},
		{"comma", "dock, north", `"dock, north"`},
		{"quote", `the "big" tank`, `"the ""big"" tank"`},
		{"newline", "line1\nline2", "\"line1\nline2\""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeCSV(tt.input); got != tt.want {
				t.Errorf("escapeCSV(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "normal text", "normal text"},
		{"newline injection", "user\nFAKE LOG LINE", `user\x0aFAKE LOG LINE`},
		{"carriage return", "a\rb", `a\x0db`},
		{"delete char", "a\x7fb", `a\x7fb`},
		{"unicode preserved", "日本語", "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPaginationBounds(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 20},
		{"page=3&pageSize=50", 3, 50},
		{"page=0&pageSize=0", 1, 20},
		{"page=-5&pageSize=-1", 1, 20},
		{"pageSize=500", 1, 100},
		{"page=abc&pageSize=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/waste-records?"+tt.query, nil)
			page, pageSize := pagination(r)
			if page != tt.wantPage || pageSize != tt.wantPageSize {
				t.Errorf("pagination(%q) = (%d, %d), want (%d, %d)",
					tt.query, page, pageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestGetDateParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/?start_date=2026-03-15&end_date=not-a-date", nil)

	start := getDateParam(r, "start_date")
	if start == nil {
		t.Fatal("expected start_date to parse")
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("start_date = %v, want %v", start, want)
	}

	// Malformed dates are ignored, not errors.
	if end := getDateParam(r, "end_date"); end != nil {
		t.Errorf("expected malformed end_date to be ignored, got %v", end)
	}
	if absent := getDateParam(r, "missing"); absent != nil {
		t.Errorf("expected absent param to be nil, got %v", absent)
	}
}

func TestGetBoolParamDistinguishesAbsent(t *testing.T) {
	r := httptest.NewRequest("GET", "/?a=false&b=true&c=banana", nil)

	if v := getBoolParam(r, "a"); v == nil || *v {
		t.Errorf("a: want explicit false, got %v", v)
	}
	if v := getBoolParam(r, "b"); v == nil || !*v {
		t.Errorf("b: want explicit true, got %v", v)
	}
	if v := getBoolParam(r, "c"); v != nil {
		t.Errorf("c: unparseable should read as absent, got %v", v)
	}
	if v := getBoolParam(r, "d"); v != nil {
		t.Errorf("d: absent should be nil, got %v", v)
	}
}

func TestConflictMessage(t *testing.T) {
	wrapped := fmt.Errorf("a company with this name already exists: %w", database.ErrConflict)
	if got := conflictMessage(wrapped); got != "a company with this name already exists" {
		t.Errorf("conflictMessage = %q", got)
	}

	if got := conflictMessage(database.ErrConflict); got != "conflicting resource state" {
		t.Errorf("bare sentinel: conflictMessage = %q", got)
	}
}

func TestFormTimeLayouts(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"rfc3339", "2026-05-01T08:30:00Z", true},
		{"datetime-local widget", "2026-05-01T08:30", true},
		{"space separated", "2026-05-01 08:30:00", true},
		{"date only", "2026-05-01", true},
		{"garbage", "yesterday", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			r.Form = map[string][]string{"t": {tt.value}}
			_, err := formTime(r, "t")
			if (err == nil) != tt.valid {
				t.Errorf("formTime(%q) err = %v, want valid=%v", tt.value, err, tt.valid)
			}
		})
	}
}

func TestRecordFilterFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/?waste_type_id=3&quantity_min=1.5&quantity_max=10&location=dock&process=inciner&start_date=2026-01-01&end_date=2026-01-31", nil)

	f := recordFilter(r)
	if f.WasteTypeID == nil || *f.WasteTypeID != 3 {
		t.Errorf("WasteTypeID = %v", f.WasteTypeID)
	}
	if f.QuantityMin == nil || *f.QuantityMin != 1.5 {
		t.Errorf("QuantityMin = %v", f.QuantityMin)
	}
	if f.QuantityMax == nil || *f.QuantityMax != 10 {
		t.Errorf("QuantityMax = %v", f.QuantityMax)
	}
	if f.Location != "dock" || f.Process != "inciner" {
		t.Errorf("Location/Process = %q/%q", f.Location, f.Process)
	}
	if f.StartDate == nil || f.EndDate == nil {
		t.Error("expected both date bounds to parse")
	}
}
