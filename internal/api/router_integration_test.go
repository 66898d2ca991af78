// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

//go:build integration

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/config"
	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/models"
	"github.com/tomtom215/hazledger/internal/upload"
)

// apiTestSemaphore serializes DuckDB-backed tests; the CGO driver dislikes
// concurrent in-memory instances within one process.
var apiTestSemaphore = make(chan struct{}, 1)

type testEnv struct {
	router     http.Handler
	db         *database.DB
	uploadDir  string
	auditStore *audit.MemoryStore
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	apiTestSemaphore <- struct{}{}
	t.Cleanup(func() { <-apiTestSemaphore })

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := database.NewWithConn(conn)
	if err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			StaticDir:   t.TempDir(),
			CORSOrigins: []string{"*"},
		},
		Security: config.SecurityConfig{
			JWTSecret:      "integration-test-secret-0123456789abcdef",
			TokenExpiry:    time.Hour,
			RememberExpiry: 24 * time.Hour,
			BcryptCost:     4,
		},
		Upload: config.UploadConfig{
			Dir:         t.TempDir(),
			MaxFileSize: 1 << 20,
		},
		RateLimit: config.RateLimitConfig{Disabled: true},
	}

	uploads, err := upload.NewStore(&cfg.Upload)
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}
	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("failed to create jwt manager: %v", err)
	}

	auditStore := audit.NewMemoryStore(1000)
	recorder := audit.NewRecorder(auditStore)
	handler := NewHandler(db, recorder, jwtMgr, uploads, cfg)
	router := NewRouter(handler, auth.NewMiddleware(jwtMgr), auth.NewLoginLimiter(5, time.Minute)).Setup()

	return &testEnv{router: router, db: db, uploadDir: cfg.Upload.Dir, auditStore: auditStore}
}

// seedAccount creates a company, unit and user in one call and returns them.
func (env *testEnv) seedAccount(t *testing.T, companyName string, role models.Role, phone, password string) (*models.Company, *models.Unit, *models.User) {
	t.Helper()
	ctx := context.Background()

	company := &models.Company{Name: companyName, Status: models.StatusActive}
	if err := env.db.CreateCompany(ctx, company); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	unit := &models.Unit{Name: companyName + " site", CompanyID: company.ID}
	if err := env.db.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("seed password: %v", err)
	}
	user := &models.User{
		Username:     companyName + " " + phone,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    company.ID,
		UnitID:       &unit.ID,
		Status:       models.StatusActive,
	}
	if err := env.db.CreateUser(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return company, unit, user
}

func (env *testEnv) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == nil {
		reader = &bytes.Buffer{}
	} else {
		reader = body
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	return env.do(t, method, path, token, &buf, "application/json")
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v (body %s)", err, rec.Body.String())
		}
	}
}

func (env *testEnv) login(t *testing.T, phone, password string) string {
	t.Helper()
	rec := env.doJSON(t, "POST", "/api/v1/auth/login", "", map[string]interface{}{
		"phone":    phone,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", phone, rec.Code, rec.Body.String())
	}
	var resp models.LoginResponse
	decodeData(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token
}

func TestHealthEndpointIsPublic(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, "GET", "/api/v1/health", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := setupTestEnv(t)
	env.seedAccount(t, "Acme", models.RoleEmployee, "13800000001", "correct-horse")

	tests := []struct {
		name     string
		phone    string
		password string
	}{
		{"wrong password", "13800000001", "wrong"},
		{"unknown phone", "13899999999", "correct-horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, "POST", "/api/v1/auth/login", "", map[string]interface{}{
				"phone":    tt.phone,
				"password": tt.password,
			})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			// Identical wording for both failure modes.
			if !strings.Contains(rec.Body.String(), "invalid credentials") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestEnv(t)
	rec := env.do(t, "GET", "/api/v1/companies", "", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCompanyManagementIsSystemAdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	env.seedAccount(t, "Root", models.RoleSystemAdmin, "13800000001", "root-pass")
	env.seedAccount(t, "Acme", models.RoleEmployee, "13800000002", "emp-pass")

	adminToken := env.login(t, "13800000001", "root-pass")
	empToken := env.login(t, "13800000002", "emp-pass")

	rec := env.doJSON(t, "POST", "/api/v1/companies", adminToken, map[string]string{"name": "New Tenant"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d body %s", rec.Code, rec.Body.String())
	}

	// Duplicate name is a 409 with the guard's wording.
	rec = env.doJSON(t, "POST", "/api/v1/companies", adminToken, map[string]string{"name": "New Tenant"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create: status %d", rec.Code)
	}

	rec = env.doJSON(t, "POST", "/api/v1/companies", empToken, map[string]string{"name": "Sneaky"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee create: status %d, want 403", rec.Code)
	}
}

func TestCompanyListingIsScoped(t *testing.T) {
	env := setupTestEnv(t)
	env.seedAccount(t, "Root", models.RoleSystemAdmin, "13800000001", "root-pass")
	acme, _, _ := env.seedAccount(t, "Acme", models.RoleCompanyAdmin, "13800000002", "acme-pass")
	env.seedAccount(t, "Globex", models.RoleCompanyAdmin, "13800000003", "globex-pass")

	adminToken := env.login(t, "13800000001", "root-pass")
	acmeToken := env.login(t, "13800000002", "acme-pass")

	var all []models.Company
	rec := env.do(t, "GET", "/api/v1/companies", adminToken, nil, "")
	decodeData(t, rec, &all)
	if len(all) != 3 {
		t.Errorf("system admin sees %d companies, want 3", len(all))
	}

	var scoped []models.Company
	rec = env.do(t, "GET", "/api/v1/companies", acmeToken, nil, "")
	decodeData(t, rec, &scoped)
	if len(scoped) != 1 || scoped[0].ID != acme.ID {
		t.Errorf("company admin sees %v, want only own company", scoped)
	}
}

var pngFixture = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func recordForm(t *testing.T, unitID, wasteTypeID int64, withPhoto bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"unit_id":               strconv.FormatInt(unitID, 10),
		"waste_type_id":         strconv.FormatInt(wasteTypeID, 10),
		"location":              "loading dock",
		"process":               "incineration",
		"quantity":              "4.5",
		"collection_start_time": "2026-05-01T08:30:00Z",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if withPhoto {
		part, err := mw.CreateFormFile("photos_before", "before.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(pngFixture); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestWasteRecordLifecycleOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	_, unit, _ := env.seedAccount(t, "Acme", models.RoleEmployee, "13800000001", "emp-pass")

	wt := &models.WasteType{Name: "solvent"}
	if err := env.db.CreateWasteType(context.Background(), wt); err != nil {
		t.Fatalf("seed waste type: %v", err)
	}

	token := env.login(t, "13800000001", "emp-pass")

	body, contentType := recordForm(t, unit.ID, wt.ID, true)
	rec := env.do(t, "POST", "/api/v1/waste-records", token, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create record: status %d body %s", rec.Code, rec.Body.String())
	}
	var created models.WasteRecord
	decodeData(t, rec, &created)
	if created.IsSupervised {
		t.Error("employee-created record must not be supervised")
	}
	if len(created.PhotosBefore) != 1 {
		t.Errorf("PhotosBefore = %v, want one stored path", created.PhotosBefore)
	}

	var listing recordListResponse
	rec = env.do(t, "GET", "/api/v1/waste-records", token, nil, "")
	decodeData(t, rec, &listing)
	if listing.PageInfo.Total != 1 || len(listing.Records) != 1 {
		t.Fatalf("listing = %+v, want the created record", listing.PageInfo)
	}

	rec = env.do(t, "GET", "/api/v1/waste-records/export", token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("export content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "loading dock") {
		t.Errorf("export body missing record row: %s", rec.Body.String())
	}
}

func TestSupervisorRecordsHiddenByDefault(t *testing.T) {
	env := setupTestEnv(t)
	company, unit, supervisor := env.seedAccount(t, "Acme", models.RoleSupervisor, "13800000001", "sup-pass")

	admin := &models.User{
		Username:  "acme admin",
		Phone:     "13800000002",
		Role:      models.RoleCompanyAdmin,
		CompanyID: company.ID,
		Status:    models.StatusActive,
	}
	hash, _ := auth.HashPassword("admin-pass", 4)
	admin.PasswordHash = hash
	if err := env.db.CreateUser(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	wt := &models.WasteType{Name: "solvent"}
	if err := env.db.CreateWasteType(context.Background(), wt); err != nil {
		t.Fatalf("seed waste type: %v", err)
	}

	supToken := env.login(t, "13800000001", "sup-pass")
	body, contentType := recordForm(t, unit.ID, wt.ID, false)
	rec := env.do(t, "POST", "/api/v1/waste-records", supToken, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("supervisor create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created models.WasteRecord
	decodeData(t, rec, &created)
	if !created.IsSupervised {
		t.Fatal("supervisor-created record must be flagged supervised")
	}
	if created.CreatorID != supervisor.ID {
		t.Errorf("CreatorID = %d, want %d", created.CreatorID, supervisor.ID)
	}

	adminToken := env.login(t, "13800000002", "admin-pass")

	var hidden recordListResponse
	rec = env.do(t, "GET", "/api/v1/waste-records?show_supervised=false", adminToken, nil, "")
	decodeData(t, rec, &hidden)
	if hidden.PageInfo.Total != 0 {
		t.Errorf("with show_supervised=false total = %d, want 0", hidden.PageInfo.Total)
	}

	var shown recordListResponse
	rec = env.do(t, "GET", "/api/v1/waste-records", adminToken, nil, "")
	decodeData(t, rec, &shown)
	if shown.PageInfo.Total != 1 {
		t.Errorf("default listing total = %d, want 1", shown.PageInfo.Total)
	}
}

// updateForm builds a multipart body from repeated field values, matching
// what the record edit form submits.
func updateForm(t *testing.T, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field %s: %v", k, err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (env *testEnv) createRecord(t *testing.T, token string, unitID, wasteTypeID int64, withPhoto bool) models.WasteRecord {
	t.Helper()
	body, contentType := recordForm(t, unitID, wasteTypeID, withPhoto)
	rec := env.do(t, "POST", "/api/v1/waste-records", token, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create record: status %d body %s", rec.Code, rec.Body.String())
	}
	var created models.WasteRecord
	decodeData(t, rec, &created)
	return created
}

func TestRecordUpdatePhotoRemovalScopedToRecord(t *testing.T) {
	env := setupTestEnv(t)
	_, unit, _ := env.seedAccount(t, "Acme", models.RoleEmployee, "13800000001", "emp-pass")
	wt := &models.WasteType{Name: "solvent"}
	if err := env.db.CreateWasteType(context.Background(), wt); err != nil {
		t.Fatalf("seed waste type: %v", err)
	}
	token := env.login(t, "13800000001", "emp-pass")
	created := env.createRecord(t, token, unit.ID, wt.ID, true)
	if len(created.PhotosBefore) != 1 {
		t.Fatalf("PhotosBefore = %v, want one stored path", created.PhotosBefore)
	}

	// A file under the upload root that belongs to some other record.
	foreignRel := filepath.Join("2026-01", "foreign.jpg")
	foreignAbs := filepath.Join(env.uploadDir, foreignRel)
	if err := os.MkdirAll(filepath.Dir(foreignAbs), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(foreignAbs, pngFixture, 0o600); err != nil {
		t.Fatalf("plant file: %v", err)
	}

	body, contentType := updateForm(t, map[string][]string{
		"photos_to_remove_before": {foreignRel},
	})
	rec := env.do(t, "PUT", "/api/v1/waste-records/"+strconv.FormatInt(created.ID, 10), token, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}

	if _, err := os.Stat(foreignAbs); err != nil {
		t.Errorf("file outside the record's photo list was deleted: %v", err)
	}
	var updated models.WasteRecord
	decodeData(t, rec, &updated)
	if len(updated.PhotosBefore) != 1 {
		t.Errorf("PhotosBefore = %v, want the record's own photo untouched", updated.PhotosBefore)
	}

	// Removing the record's own photo still works and deletes its file.
	own := updated.PhotosBefore[0]
	body, contentType = updateForm(t, map[string][]string{
		"photos_to_remove_before": {own},
	})
	rec = env.do(t, "PUT", "/api/v1/waste-records/"+strconv.FormatInt(created.ID, 10), token, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("second update: status %d body %s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &updated)
	if len(updated.PhotosBefore) != 0 {
		t.Errorf("PhotosBefore = %v, want empty", updated.PhotosBefore)
	}
	if _, err := os.Stat(filepath.Join(env.uploadDir, filepath.FromSlash(own))); !os.IsNotExist(err) {
		t.Errorf("own photo file should be gone, stat err = %v", err)
	}
}

func TestRecordUpdateAuditsFieldDiff(t *testing.T) {
	env := setupTestEnv(t)
	_, unit, _ := env.seedAccount(t, "Acme", models.RoleEmployee, "13800000001", "emp-pass")
	wt := &models.WasteType{Name: "solvent"}
	if err := env.db.CreateWasteType(context.Background(), wt); err != nil {
		t.Fatalf("seed waste type: %v", err)
	}
	token := env.login(t, "13800000001", "emp-pass")
	created := env.createRecord(t, token, unit.ID, wt.ID, false)

	body, contentType := updateForm(t, map[string][]string{
		"location": {"warehouse"},
	})
	rec := env.do(t, "PUT", "/api/v1/waste-records/"+strconv.FormatInt(created.ID, 10), token, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}

	entries, err := env.auditStore.Query(context.Background(), audit.QueryFilter{
		Types:      []audit.EventType{audit.EventTypeUpdate},
		TargetType: audit.TargetRecord,
	})
	if err != nil {
		t.Fatalf("query audit store: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d update entries, want 1", len(entries))
	}
	desc := entries[0].Description
	if !strings.Contains(desc, `location: "loading dock" to "warehouse"`) {
		t.Errorf("description = %q, want the field-level diff", desc)
	}

	// A submission that changes nothing leaves no trail.
	body, contentType = updateForm(t, map[string][]string{
		"location": {"warehouse"},
	})
	rec = env.do(t, "PUT", "/api/v1/waste-records/"+strconv.FormatInt(created.ID, 10), token, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-op update: status %d body %s", rec.Code, rec.Body.String())
	}
	entries, err = env.auditStore.Query(context.Background(), audit.QueryFilter{
		Types:      []audit.EventType{audit.EventTypeUpdate},
		TargetType: audit.TargetRecord,
	})
	if err != nil {
		t.Fatalf("query audit store: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("no-op update added an entry, got %d", len(entries))
	}
}
