// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package auth provides password verification, JWT issuance and the HTTP
// authentication middleware that turns a bearer token into a policy
// principal.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/hazledger/internal/config"
	"github.com/tomtom215/hazledger/internal/models"
)

// Claims are the JWT claims carried by every issued token. They hold the
// full principal so request handling never needs a user lookup to scope a
// query.
type Claims struct {
	UserID    int64       `json:"user_id"`
	Role      models.Role `json:"role"`
	CompanyID int64       `json:"company_id"`
	UnitID    *int64      `json:"unit_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates bearer tokens. HMAC-SHA256 only.
type JWTManager struct {
	secret         []byte
	tokenExpiry    time.Duration
	rememberExpiry time.Duration
}

// NewJWTManager builds a manager from the security configuration. The
// secret must be set; length is enforced by config validation.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required but was empty")
	}

	tokenExpiry := cfg.TokenExpiry
	if tokenExpiry <= 0 {
		tokenExpiry = 24 * time.Hour
	}
	rememberExpiry := cfg.RememberExpiry
	if rememberExpiry < tokenExpiry {
		rememberExpiry = tokenExpiry
	}

	return &JWTManager{
		secret:         []byte(cfg.JWTSecret),
		tokenExpiry:    tokenExpiry,
		rememberExpiry: rememberExpiry,
	}, nil
}

// GenerateToken signs a token for an authenticated user. remember selects
// the extended expiry.
func (m *JWTManager) GenerateToken(user *models.User, remember bool) (string, error) {
	expiry := m.tokenExpiry
	if remember {
		expiry = m.rememberExpiry
	}

	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		UnitID:    user.UnitID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm and expiry and returns the
// claims. Tokens signed with any method other than HMAC are rejected.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("token carries unknown role %d", claims.Role)
	}
	return claims, nil
}
