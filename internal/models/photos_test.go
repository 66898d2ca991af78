// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package models

import (
	"reflect"
	"testing"
)

func TestEncodePhotoList(t *testing.T) {
	encoded, err := EncodePhotoList(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if encoded != "" {
		t.Errorf("nil list encodes to %q, want empty string", encoded)
	}

	encoded, err = EncodePhotoList([]string{"2026-01/a.jpg", "2026-01/b.jpg"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded := DecodePhotoList(encoded)
	if !reflect.DeepEqual(decoded, []string{"2026-01/a.jpg", "2026-01/b.jpg"}) {
		t.Errorf("round trip = %v", decoded)
	}
}

func TestDecodePhotoListTolerantOfBadData(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"not json", "oops"},
		{"wrong shape", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodePhotoList(tt.stored); got != nil {
				t.Errorf("DecodePhotoList(%q) = %v, want nil", tt.stored, got)
			}
		})
	}
}

func TestMergePhotoPaths(t *testing.T) {
	got := MergePhotoPaths([]string{"a", "b"}, []string{"b", "c"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("merge = %v, want [a b c]", got)
	}
	if got := MergePhotoPaths(nil, nil); len(got) != 0 {
		t.Errorf("merge of nothing = %v", got)
	}
}

func TestRemovePhotoPaths(t *testing.T) {
	tests := []struct {
		name     string
		current  []string
		toRemove []string
		want     []string
	}{
		{"empty removal", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"known path", []string{"a", "b", "c"}, []string{"b"}, []string{"a", "c"}},
		{"unknown path is a no-op", []string{"a", "b"}, []string{"x", "../../etc/passwd"}, []string{"a", "b"}},
		{"empty current", nil, []string{"a"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemovePhotoPaths(tt.current, tt.toRemove)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RemovePhotoPaths(%v, %v) = %v, want %v", tt.current, tt.toRemove, got, tt.want)
			}
		})
	}
}

func TestIntersectPhotoPaths(t *testing.T) {
	tests := []struct {
		name       string
		current    []string
		candidates []string
		want       []string
	}{
		{"only known paths survive", []string{"a", "b"}, []string{"b", "x", "2026-01/foreign.jpg"}, []string{"b"}},
		{"nothing in common", []string{"a"}, []string{"x"}, nil},
		{"empty candidates", []string{"a"}, nil, nil},
		{"order follows current", []string{"a", "b", "c"}, []string{"c", "a"}, []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntersectPhotoPaths(tt.current, tt.candidates)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IntersectPhotoPaths(%v, %v) = %v, want %v", tt.current, tt.candidates, got, tt.want)
			}
		})
	}
}
