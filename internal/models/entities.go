// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package models defines the domain entities shared across storage, policy
// and HTTP layers.
package models

import "time"

// Entity status values. Company rows are soft-deleted (status flip); all
// other entities are hard-deleted behind reference guards.
const (
	StatusActive   = 1
	StatusInactive = 0
)

// Company is a tenant. It owns units, users and waste records.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyStats aggregates ownership counts for one company.
type CompanyStats struct {
	CompanyID   int64 `json:"company_id"`
	UnitCount   int64 `json:"unit_count"`
	UserCount   int64 `json:"user_count"`
	RecordCount int64 `json:"record_count"`
}

// Unit is a site belonging to a company. Unit names are unique within
// their company.
type Unit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CompanyID int64     `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WasteType is a globally unique taxonomy entry.
type WasteType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an account. Phone is the globally unique login identifier.
// PasswordHash may be empty: legacy accounts log in without a password.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	UnitID       *int64     `json:"unit_id,omitempty"`
	CompanyID    int64      `json:"company_id"`
	Status       int        `json:"status"`
	CanViewLogs  bool       `json:"can_view_logs"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// HasPassword reports whether the account carries a stored password hash.
// Accounts without one permit password-less legacy login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// WasteRecord is one collection event with photo evidence.
//
// CompanyID is derived from the creator's company at creation time and is
// immutable afterwards except by the system admin role. IsSupervised is set
// by the system when the creating principal is a supervisor; it is never
// accepted from client input.
type WasteRecord struct {
	ID                  int64     `json:"id"`
	UnitID              int64     `json:"unit_id"`
	WasteTypeID         int64     `json:"waste_type_id"`
	CompanyID           int64     `json:"company_id"`
	Location            string    `json:"location"`
	Process             string    `json:"process"`
	Quantity            *float64  `json:"quantity,omitempty"`
	CollectionStartTime time.Time `json:"collection_start_time"`
	PhotosBefore        []string  `json:"photos_before"`
	PhotosAfter         []string  `json:"photos_after"`
	CreatorID           int64     `json:"creator_id"`
	Remarks             string    `json:"remarks,omitempty"`
	IsSupervised        bool      `json:"is_supervised"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Denormalized display fields populated by list queries.
	UnitName      string `json:"unit_name,omitempty"`
	WasteTypeName string `json:"waste_type_name,omitempty"`
	CreatorName   string `json:"creator_name,omitempty"`
}

// Feedback status values.
const (
	FeedbackStatusPending    = "pending"
	FeedbackStatusProcessing = "processing"
	FeedbackStatusResolved   = "resolved"
	FeedbackStatusClosed     = "closed"
)

// Feedback is a user-filed issue report. Its access rules mirror the same
// company scoping as the waste-record domain.
type Feedback struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CompanyID   int64     `json:"company_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	AdminID     *int64    `json:"admin_id,omitempty"`
	AdminReply  string    `json:"admin_reply,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidFeedbackStatus reports whether s is a known feedback status.
func ValidFeedbackStatus(s string) bool {
	switch s {
	case FeedbackStatusPending, FeedbackStatusProcessing, FeedbackStatusResolved, FeedbackStatusClosed:
		return true
	}
	return false
}
