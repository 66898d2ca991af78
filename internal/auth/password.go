// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/hazledger/internal/models"
)

// ErrInvalidCredentials is returned for any authentication failure. The
// message never distinguishes unknown phone from wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword derives a bcrypt hash at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a login attempt against the stored account.
//
// Accounts without a stored hash are legacy imports that authenticate by
// phone alone: any password, including empty, is accepted until the account
// sets one.
func VerifyPassword(user *models.User, password string) error {
	if !user.HasPassword() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
