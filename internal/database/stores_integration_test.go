// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

//go:build integration

package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/policy"
)

// testDBSemaphore serializes DuckDB setup; concurrent CGO connections can
// hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	db, err := NewWithConn(conn)
	if err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedCompany inserts an active company and returns it.
func seedCompany(t *testing.T, db *DB, name, code string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name, Code: code}
	if err := db.CreateCompany(context.Background(), c); err != nil {
		t.Fatalf("failed to seed company %s: %v", name, err)
	}
	return c
}

func seedUnit(t *testing.T, db *DB, name string, companyID int64) *models.Unit {
	t.Helper()
	u := &models.Unit{Name: name, CompanyID: companyID}
	if err := db.CreateUnit(context.Background(), u); err != nil {
		t.Fatalf("failed to seed unit %s: %v", name, err)
	}
	return u
}

func seedWasteType(t *testing.T, db *DB, name string) *models.WasteType {
	t.Helper()
	wt := &models.WasteType{Name: name}
	if err := db.CreateWasteType(context.Background(), wt); err != nil {
		t.Fatalf("failed to seed waste type %s: %v", name, err)
	}
	return wt
}

func seedUser(t *testing.T, db *DB, phone string, role models.Role, companyID int64, unitID *int64) *models.User {
	t.Helper()
	u := &models.User{
		Username:  "user-" + phone,
		Phone:     phone,
		Role:      role,
		CompanyID: companyID,
		UnitID:    unitID,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user %s: %v", phone, err)
	}
	return u
}

func seedRecord(t *testing.T, db *DB, unitID, typeID, companyID, creatorID int64, supervised bool) *models.WasteRecord {
	t.Helper()
	r := &models.WasteRecord{
		UnitID:              unitID,
		WasteTypeID:         typeID,
		CompanyID:           companyID,
		Location:            "loading dock",
		Process:             "incineration",
		CollectionStartTime: time.Now(),
		CreatorID:           creatorID,
		IsSupervised:        supervised,
	}
	if err := db.CreateWasteRecord(context.Background(), r); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	return r
}

func TestCompanyUniquenessGuards(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seedCompany(t, db, "Acme Disposal", "ACME")

	dup := &models.Company{Name: "Acme Disposal"}
	if err := db.CreateCompany(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate name: got %v, want ErrConflict", err)
	}

	dupCode := &models.Company{Name: "Other Co", Code: "ACME"}
	if err := db.CreateCompany(ctx, dupCode); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate code: got %v, want ErrConflict", err)
	}

	// Empty codes never collide.
	a := &models.Company{Name: "No Code A"}
	b := &models.Company{Name: "No Code B"}
	if err := db.CreateCompany(ctx, a); err != nil {
		t.Fatalf("company without code: %v", err)
	}
	if err := db.CreateCompany(ctx, b); err != nil {
		t.Errorf("second company without code rejected: %v", err)
	}
}

func TestCompanySoftDeleteFreesNameAndCode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "ACME")
	if err := db.DeleteCompany(ctx, c.ID); err != nil {
		t.Fatalf("delete empty company: %v", err)
	}

	if _, err := db.GetCompany(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("soft-deleted company still readable: %v", err)
	}

	// Inactive rows do not count against uniqueness.
	again := &models.Company{Name: "Acme Disposal", Code: "ACME"}
	if err := db.CreateCompany(ctx, again); err != nil {
		t.Errorf("name/code of inactive company still reserved: %v", err)
	}
}

func TestCompanyDeleteGuardedByOwnership(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	seedUnit(t, db, "North Site", c.ID)

	if err := db.DeleteCompany(ctx, c.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete company with units: got %v, want ErrConflict", err)
	}
}

func TestUnitDeleteGuards(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	u := seedUnit(t, db, "North Site", c.ID)
	seedUser(t, db, "13800000001", models.RoleEmployee, c.ID, &u.ID)

	if err := db.DeleteUnit(ctx, u.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete unit with assigned user: got %v, want ErrConflict", err)
	}
}

func TestWasteTypeGuards(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	wt := seedWasteType(t, db, "Solvent")

	dup := &models.WasteType{Name: "Solvent"}
	if err := db.CreateWasteType(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate waste type name: got %v, want ErrConflict", err)
	}

	c := seedCompany(t, db, "Acme Disposal", "")
	u := seedUnit(t, db, "North Site", c.ID)
	creator := seedUser(t, db, "13800000002", models.RoleEmployee, c.ID, &u.ID)
	seedRecord(t, db, u.ID, wt.ID, c.ID, creator.ID, false)

	if err := db.DeleteWasteType(ctx, wt.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete referenced waste type: got %v, want ErrConflict", err)
	}
}

func TestUserPhoneUniqueAndDeleteGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	u := seedUnit(t, db, "North Site", c.ID)
	wt := seedWasteType(t, db, "Solvent")
	user := seedUser(t, db, "13800000003", models.RoleEmployee, c.ID, &u.ID)

	dup := &models.User{Username: "other", Phone: "13800000003", Role: models.RoleEmployee, CompanyID: c.ID, UnitID: &u.ID}
	if err := db.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate phone: got %v, want ErrConflict", err)
	}

	seedRecord(t, db, u.ID, wt.ID, c.ID, user.ID, false)
	if err := db.DeleteUser(ctx, user.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete user with records: got %v, want ErrConflict", err)
	}
}

func TestUserUnitMustBelongToCompany(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c1 := seedCompany(t, db, "Acme Disposal", "")
	c2 := seedCompany(t, db, "Beta Waste", "")
	foreignUnit := seedUnit(t, db, "Beta Site", c2.ID)

	u := &models.User{Username: "cross", Phone: "13800000004", Role: models.RoleEmployee, CompanyID: c1.ID, UnitID: &foreignUnit.ID}
	if err := db.CreateUser(ctx, u); !errors.Is(err, ErrConflict) {
		t.Errorf("user with foreign unit: got %v, want ErrConflict", err)
	}
}

func TestRecordPhotoRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	u := seedUnit(t, db, "North Site", c.ID)
	wt := seedWasteType(t, db, "Solvent")
	creator := seedUser(t, db, "13800000005", models.RoleEmployee, c.ID, &u.ID)

	r := &models.WasteRecord{
		UnitID:              u.ID,
		WasteTypeID:         wt.ID,
		CompanyID:           c.ID,
		Location:            "dock",
		Process:             "sorting",
		CollectionStartTime: time.Now(),
		PhotosBefore:        []string{"uploads/a.jpg", "uploads/b.jpg"},
		CreatorID:           creator.ID,
	}
	if err := db.CreateWasteRecord(ctx, r); err != nil {
		t.Fatalf("create record with photos: %v", err)
	}

	got, err := db.GetWasteRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("read record back: %v", err)
	}
	if len(got.PhotosBefore) != 2 || got.PhotosBefore[0] != "uploads/a.jpg" {
		t.Errorf("photos_before round trip = %v", got.PhotosBefore)
	}
	if got.PhotosAfter != nil {
		t.Errorf("empty photos_after decoded as %v, want nil", got.PhotosAfter)
	}
	if got.UnitName != "North Site" || got.WasteTypeName != "Solvent" {
		t.Errorf("denormalized names = %q / %q", got.UnitName, got.WasteTypeName)
	}
}

func TestListWasteRecordsScoped(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c1 := seedCompany(t, db, "Acme Disposal", "")
	c2 := seedCompany(t, db, "Beta Waste", "")
	u1 := seedUnit(t, db, "North Site", c1.ID)
	u2 := seedUnit(t, db, "Beta Site", c2.ID)
	wt := seedWasteType(t, db, "Solvent")
	e1 := seedUser(t, db, "13800000006", models.RoleEmployee, c1.ID, &u1.ID)
	e2 := seedUser(t, db, "13800000007", models.RoleEmployee, c2.ID, &u2.ID)

	seedRecord(t, db, u1.ID, wt.ID, c1.ID, e1.ID, false)
	seedRecord(t, db, u1.ID, wt.ID, c1.ID, e1.ID, true) // supervised
	seedRecord(t, db, u2.ID, wt.ID, c2.ID, e2.ID, false)

	// Company scope excluding supervised sees one row.
	scope := policy.RecordVisibility{CompanyID: &c1.ID, UnitID: &u1.ID, Supervised: policy.SupervisedExcluded}
	page, err := db.ListWasteRecords(ctx, scope, RecordFilter{}, 1, 20)
	if err != nil {
		t.Fatalf("scoped list: %v", err)
	}
	if page.Total != 1 || len(page.Records) != 1 {
		t.Errorf("scoped list total = %d rows = %d, want 1/1", page.Total, len(page.Records))
	}

	// Unrestricted scope sees everything.
	all, err := db.ListWasteRecords(ctx, policy.RecordVisibility{Supervised: policy.SupervisedIncluded}, RecordFilter{}, 1, 20)
	if err != nil {
		t.Fatalf("unrestricted list: %v", err)
	}
	if all.Total != 3 {
		t.Errorf("unrestricted total = %d, want 3", all.Total)
	}

	// Export applies the identical scope.
	exported, err := db.ExportWasteRecords(ctx, scope, RecordFilter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 1 {
		t.Errorf("export returned %d rows, want 1", len(exported))
	}
}

func TestListWasteRecordsPaginationOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	u := seedUnit(t, db, "North Site", c.ID)
	wt := seedWasteType(t, db, "Solvent")
	creator := seedUser(t, db, "13800000008", models.RoleEmployee, c.ID, &u.ID)

	var ids []int64
	for i := 0; i < 5; i++ {
		r := seedRecord(t, db, u.ID, wt.ID, c.ID, creator.ID, false)
		ids = append(ids, r.ID)
	}

	scope := policy.RecordVisibility{CompanyID: &c.ID, Supervised: policy.SupervisedIncluded}
	page, err := db.ListWasteRecords(ctx, scope, RecordFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if page.Total != 5 || !page.HasMore() {
		t.Errorf("page 1 total = %d hasMore = %v, want 5/true", page.Total, page.HasMore())
	}
	// Newest first; ties broken by id descending, so the last insert leads.
	if len(page.Records) != 2 || page.Records[0].ID != ids[4] {
		t.Errorf("page 1 first id = %d, want %d", page.Records[0].ID, ids[4])
	}

	last, err := db.ListWasteRecords(ctx, scope, RecordFilter{}, 3, 2)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(last.Records) != 1 || last.HasMore() {
		t.Errorf("page 3 rows = %d hasMore = %v, want 1/false", len(last.Records), last.HasMore())
	}
}

func TestReassignRecordCompany(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c1 := seedCompany(t, db, "Acme Disposal", "")
	c2 := seedCompany(t, db, "Beta Waste", "")
	u := seedUnit(t, db, "North Site", c1.ID)
	wt := seedWasteType(t, db, "Solvent")
	creator := seedUser(t, db, "13800000009", models.RoleEmployee, c1.ID, &u.ID)
	r := seedRecord(t, db, u.ID, wt.ID, c1.ID, creator.ID, false)

	if err := db.ReassignRecordCompany(ctx, r.ID, c2.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	got, err := db.GetWasteRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.CompanyID != c2.ID {
		t.Errorf("company after reassign = %d, want %d", got.CompanyID, c2.ID)
	}

	if err := db.ReassignRecordCompany(ctx, r.ID, 9999); !errors.Is(err, ErrConflict) {
		t.Errorf("reassign to missing company: got %v, want ErrConflict", err)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := seedCompany(t, db, "Acme Disposal", "")
	user := seedUser(t, db, "13800000010", models.RoleEmployee, c.ID, nil)
	admin := seedUser(t, db, "13800000011", models.RoleCompanyAdmin, c.ID, nil)

	f := &models.Feedback{UserID: user.ID, CompanyID: c.ID, Title: "broken export", Description: "csv is empty"}
	if err := db.CreateFeedback(ctx, f); err != nil {
		t.Fatalf("create feedback: %v", err)
	}
	if f.Status != models.FeedbackStatusPending {
		t.Errorf("new feedback status = %q, want pending", f.Status)
	}

	if err := db.UpdateFeedbackStatus(ctx, f.ID, admin.ID, "bogus", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("invalid status: got %v, want ErrConflict", err)
	}
	if err := db.UpdateFeedbackStatus(ctx, f.ID, admin.ID, models.FeedbackStatusResolved, "fixed in 1.2"); err != nil {
		t.Fatalf("resolve feedback: %v", err)
	}

	got, err := db.GetFeedback(ctx, f.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Status != models.FeedbackStatusResolved || got.AdminReply != "fixed in 1.2" {
		t.Errorf("feedback after resolve = %q / %q", got.Status, got.AdminReply)
	}

	listed, err := db.ListFeedback(ctx, &c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("listed %d feedback rows, want 1", len(listed))
	}
}
