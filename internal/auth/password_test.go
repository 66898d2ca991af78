// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package auth

import (
	"errors"
	"testing"

	"github.com/tomtom215/hazledger/internal/models"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	user := &models.User{PasswordHash: hash}
	if err := VerifyPassword(user, "s3cret-pass"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := VerifyPassword(user, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if err := VerifyPassword(user, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty password against set hash: got %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyPasswordLegacyAccount(t *testing.T) {
	// No stored hash: phone-only legacy login, any password passes.
	user := &models.User{}
	if err := VerifyPassword(user, ""); err != nil {
		t.Errorf("legacy account with empty password rejected: %v", err)
	}
	if err := VerifyPassword(user, "anything"); err != nil {
		t.Errorf("legacy account with arbitrary password rejected: %v", err)
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	// Out-of-range costs fall back to the bcrypt default rather than erroring.
	if _, err := HashPassword("pw", 99); err != nil {
		t.Errorf("cost above max: %v", err)
	}
	if _, err := HashPassword("pw", 0); err != nil {
		t.Errorf("cost below min: %v", err)
	}
}
