// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes operation log entries.
type EventType string

const (
	// Authentication events
	EventTypeLoginSuccess EventType = "login.success"
	EventTypeLoginFailure EventType = "login.failure"

	// Mutation events
	EventTypeCreate EventType = "create"
	EventTypeUpdate EventType = "update"
	EventTypeDelete EventType = "delete"
)

// Target types recorded alongside mutation events.
const (
	TargetCompany    = "company"
	TargetUnit       = "unit"
	TargetWasteType  = "waste_type"
	TargetUser       = "user"
	TargetRecord     = "waste_record"
	TargetFeedback   = "feedback"
	TargetCredential = "credential"
)

// Entry is one operation log row. The log is append-only: entries are never
// updated, and the only delete path is the retention purge.
//
// UserID is nil for failed logins where the phone matched no account; the
// attempted identifier is still kept in Username for forensics.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// CompanyID scopes the entry to a tenant. Nil for system-level events
	// with no tenant affiliation.
	CompanyID *int64 `json:"company_id,omitempty"`

	TargetType string `json:"target_type,omitempty"`
	TargetID   *int64 `json:"target_id,omitempty"`

	// Description is built at write time from the changed fields, so it
	// stays meaningful even after the target row is deleted.
	Description string `json:"description"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// AdditionalData carries event-specific detail as raw JSON.
	AdditionalData json.RawMessage `json:"additional_data,omitempty"`
}

// QueryFilter selects operation log entries. Zero fields are inert.
type QueryFilter struct {
	// Types filters by event type.
	Types []EventType `json:"types,omitempty"`

	// CompanyID pins results to one tenant. This is the mandatory scope
	// for every non-system-admin caller; handlers set it from the policy
	// layer, never from client input.
	CompanyID *int64 `json:"company_id,omitempty"`

	// UserID filters by acting user.
	UserID *int64 `json:"user_id,omitempty"`

	// Keyword matches against the recorded username.
	Keyword string `json:"keyword,omitempty"`

	// TargetType filters by target entity kind.
	TargetType string `json:"target_type,omitempty"`

	// SearchText performs a substring match on the description.
	SearchText string `json:"search_text,omitempty"`

	// StartTime and EndTime bound the entry timestamp.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Limit and Offset paginate. Limit 0 means the store default.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store persists operation log entries.
type Store interface {
	// Save appends one entry.
	Save(ctx context.Context, entry *Entry) error

	// Query retrieves entries matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes entries older than the cutoff and reports how many
	// rows went. Retention purge is the only caller.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}
