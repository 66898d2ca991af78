// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/hazledger/internal/config"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0D")

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&config.UploadConfig{
		Dir:               t.TempDir(),
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{"jpg", "jpeg", "png"},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

// fileHeader builds a real multipart.FileHeader by round-tripping a form.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["photo"][0]
}

func TestSaveAcceptsValidImage(t *testing.T) {
	store := newTestStore(t)

	content := append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0x42}, 100)...)
	rel, err := store.Save(fileHeader(t, "site.jpg", content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if filepath.IsAbs(rel) {
		t.Errorf("returned absolute path %q", rel)
	}
	if !strings.HasSuffix(rel, ".jpg") {
		t.Errorf("stored path %q lost extension", rel)
	}
	if strings.Contains(rel, "site") {
		t.Errorf("stored path %q reuses client filename", rel)
	}

	abs, err := store.Resolve(rel)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	stored, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored content differs from upload")
	}
}

func TestSaveRejections(t *testing.T) {
	store := newTestStore(t)

	pngContent := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 50)...)

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  error
	}{
		{"disallowed extension", "payload.exe", pngContent, ErrBadExtension},
		{"renamed non-image", "fake.png", []byte("#!/bin/sh\nrm -rf /\n"), ErrBadContent},
		{"empty file", "empty.jpg", nil, ErrEmptyFile},
		{"extension content mismatch", "notes.jpg", []byte("plain text, definitely long enough"), ErrBadContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(fileHeader(t, tt.filename, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	store, err := NewStore(&config.UploadConfig{
		Dir:               t.TempDir(),
		MaxFileSize:       64,
		AllowedExtensions: []string{"jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	content := append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0x42}, 200)...)
	if _, err := store.Save(fileHeader(t, "big.jpg", content)); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("got %v, want ErrFileTooLarge", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, rel := range []string{"../etc/passwd", "..", "/etc/passwd", "2026-01/../../secret"} {
		if _, err := store.Resolve(rel); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Resolve(%q): got %v, want ErrOutsideRoot", rel, err)
		}
	}
}

func TestRemoveBestEffort(t *testing.T) {
	store := newTestStore(t)

	content := append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0x42}, 10)...)
	rel, err := store.Save(fileHeader(t, "a.jpg", content))
	if err != nil {
		t.Fatal(err)
	}

	// Unknown and traversal paths are skipped without panicking.
	store.Remove([]string{rel, "2026-01/missing.jpg", "../outside.jpg"})

	abs, _ := store.Resolve(rel)
	if _, err := os.Stat(abs); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stored file still present after Remove: %v", err)
	}
}
