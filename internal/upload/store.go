// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package upload stores photo evidence files on disk. Records reference
// files by path relative to the upload root, so the root can move between
// deployments without rewriting rows.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/hazledger/internal/config"
	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/metrics"
)

// Validation failures surfaced to the API layer.
var (
	ErrFileTooLarge    = errors.New("file exceeds upload size limit")
	ErrBadExtension    = errors.New("file extension not allowed")
	ErrBadContent      = errors.New("file content is not an accepted image format")
	ErrOutsideRoot     = errors.New("path escapes the upload root")
	ErrEmptyFile       = errors.New("file is empty")
	errUnknownSniffLen = errors.New("file too short to identify")
)

// Store saves and removes photo files under a single root directory.
type Store struct {
	root    string
	maxSize int64
	allowed map[string]bool
}

// NewStore creates the photo store and its root directory.
func NewStore(cfg *config.UploadConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.Dir, err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	if len(allowed) == 0 {
		for _, ext := range []string{"jpg", "jpeg", "png", "gif", "webp"} {
			allowed[ext] = true
		}
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}

	return &Store{root: cfg.Dir, maxSize: maxSize, allowed: allowed}, nil
}

// Save validates and writes one uploaded photo and returns its relative
// path. The stored name is a fresh UUID; the client filename contributes
// only its extension.
func (s *Store) Save(header *multipart.FileHeader) (string, error) {
	if header.Size == 0 {
		metrics.UploadRejections.WithLabelValues("empty").Inc()
		return "", ErrEmptyFile
	}
	if header.Size > s.maxSize {
		metrics.UploadRejections.WithLabelValues("size").Inc()
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, header.Size)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !s.allowed[ext] {
		metrics.UploadRejections.WithLabelValues("extension").Inc()
		return "", fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	if err := sniffImage(file); err != nil {
		metrics.UploadRejections.WithLabelValues("content").Inc()
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	// Shard by month so a single directory never accumulates years of files.
	relDir := time.Now().Format("2006-01")
	if err := os.MkdirAll(filepath.Join(s.root, relDir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload subdirectory: %w", err)
	}

	relPath := filepath.Join(relDir, uuid.New().String()+"."+ext)
	dst, err := os.OpenFile(filepath.Join(s.root, relPath), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}
	if written > s.maxSize {
		_ = os.Remove(filepath.Join(s.root, relPath))
		metrics.UploadRejections.WithLabelValues("size").Inc()
		return "", ErrFileTooLarge
	}

	metrics.UploadBytes.Add(float64(written))
	return filepath.ToSlash(relPath), nil
}

// Remove deletes stored photos best-effort. Called after a record update or
// delete has already committed, so failures are logged, never returned.
func (s *Store) Remove(relPaths []string) {
	for _, rel := range relPaths {
		abs, err := s.resolve(rel)
		if err != nil {
			logging.Warn().Str("path", rel).Err(err).Msg("Refusing to remove photo outside upload root")
			continue
		}
		if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn().Str("path", rel).Err(err).Msg("Failed to remove photo file")
		}
	}
}

// Resolve maps a stored relative path to an absolute one for serving,
// rejecting traversal out of the root.
func (s *Store) Resolve(relPath string) (string, error) {
	return s.resolve(relPath)
}

// Root returns the upload root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, relPath)
	}
	return filepath.Join(s.root, cleaned), nil
}

// sniffImage checks the magic bytes of the common image formats. Extension
// checks alone would let a renamed executable through.
func sniffImage(r io.Reader) error {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && n < 4 {
		return fmt.Errorf("%w: %v", ErrBadContent, errUnknownSniffLen)
	}
	header = header[:n]

	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF: // JPEG
		return nil
	case len(header) >= 8 && string(header[:8]) == "\x89PNG\r\n\x1a\n": // PNG
		return nil
	case len(header) >= 6 && (string(header[:6]) == "GIF87a" || string(header[:6]) == "GIF89a"):
		return nil
	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return nil
	}
	return ErrBadContent
}
