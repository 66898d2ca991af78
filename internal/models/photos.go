// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package models

import (
	"github.com/goccy/go-json"
)

// Photo path lists are a typed ordered sequence of relative path strings at
// the API boundary. The JSON-in-a-text-column encoding below is a storage
// detail only.

// EncodePhotoList serializes a path list for storage.
// A nil or empty list encodes as an empty string so the column stays NULL-ish
// and cheap to test.
func EncodePhotoList(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePhotoList parses a stored path list. Empty input decodes to nil.
// Malformed stored data decodes to nil rather than failing the read: a
// corrupt photo column must not make the record unreadable.
func DecodePhotoList(stored string) []string {
	if stored == "" {
		return nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(stored), &paths); err != nil {
		return nil
	}
	return paths
}

// MergePhotoPaths appends newly uploaded paths to the current list,
// skipping duplicates while preserving order.
func MergePhotoPaths(current, added []string) []string {
	seen := make(map[string]bool, len(current))
	merged := make([]string, 0, len(current)+len(added))
	for _, p := range current {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	for _, p := range added {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	return merged
}

// IntersectPhotoPaths returns the candidates actually present in current,
// in current's order. Callers deleting files for removed photos must go
// through this so a request can never name a path outside the record's own
// list.
func IntersectPhotoPaths(current, candidates []string) []string {
	want := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		want[p] = true
	}
	var both []string
	for _, p := range current {
		if want[p] {
			both = append(both, p)
		}
	}
	return both
}

// RemovePhotoPaths removes the listed paths from current, preserving order.
// Removal targets not present in the current list are no-ops.
func RemovePhotoPaths(current, toRemove []string) []string {
	if len(toRemove) == 0 {
		return current
	}
	drop := make(map[string]bool, len(toRemove))
	for _, p := range toRemove {
		drop[p] = true
	}
	kept := make([]string, 0, len(current))
	for _, p := range current {
		if !drop[p] {
			kept = append(kept, p)
		}
	}
	return kept
}
