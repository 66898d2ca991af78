// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/metrics"
)

// Actor identifies who performed an operation and from where.
type Actor struct {
	UserID    int64
	Username  string
	CompanyID int64
	IP        string
	UserAgent string
}

// Recorder writes operation log entries synchronously, before the HTTP
// response is sent. Failures are swallowed: the business operation already
// succeeded and must not be failed retroactively by its audit write.
type Recorder struct {
	store Store

	// now is injected for deterministic timestamps under test.
	now func() time.Time
}

// NewRecorder creates a synchronous operation log recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// RecordLogin logs an authentication attempt. userID and companyID are nil
// when the phone matched no account; the attempted identifier goes in
// username so failed probes remain visible.
func (r *Recorder) RecordLogin(ctx context.Context, userID, companyID *int64, username string, success bool, ip, userAgent string) {
	typ := EventTypeLoginSuccess
	desc := fmt.Sprintf("login succeeded for %s", username)
	if !success {
		typ = EventTypeLoginFailure
		desc = fmt.Sprintf("login failed for %s", username)
	}
	r.write(ctx, &Entry{
		Type:        typ,
		UserID:      userID,
		Username:    username,
		CompanyID:   companyID,
		TargetType:  TargetCredential,
		Description: desc,
		IP:          ip,
		UserAgent:   userAgent,
	})
}

// RecordCreate logs an entity creation.
func (r *Recorder) RecordCreate(ctx context.Context, actor Actor, targetType string, targetID int64, name string) {
	r.write(ctx, &Entry{
		Type:        EventTypeCreate,
		UserID:      &actor.UserID,
		Username:    actor.Username,
		CompanyID:   &actor.CompanyID,
		TargetType:  targetType,
		TargetID:    &targetID,
		Description: fmt.Sprintf("created %s %q", targetType, name),
		IP:          actor.IP,
		UserAgent:   actor.UserAgent,
	})
}

// RecordUpdate logs an entity mutation. The description carries only the
// fields that actually changed so it stays meaningful after the row is gone.
func (r *Recorder) RecordUpdate(ctx context.Context, actor Actor, targetType string, targetID int64, changes []Change) {
	if len(changes) == 0 {
		return
	}
	r.write(ctx, &Entry{
		Type:        EventTypeUpdate,
		UserID:      &actor.UserID,
		Username:    actor.Username,
		CompanyID:   &actor.CompanyID,
		TargetType:  targetType,
		TargetID:    &targetID,
		Description: describeChanges(targetType, changes),
		IP:          actor.IP,
		UserAgent:   actor.UserAgent,
	})
}

// RecordDelete logs an entity deletion.
func (r *Recorder) RecordDelete(ctx context.Context, actor Actor, targetType string, targetID int64, name string) {
	r.write(ctx, &Entry{
		Type:        EventTypeDelete,
		UserID:      &actor.UserID,
		Username:    actor.Username,
		CompanyID:   &actor.CompanyID,
		TargetType:  targetType,
		TargetID:    &targetID,
		Description: fmt.Sprintf("deleted %s %q", targetType, name),
		IP:          actor.IP,
		UserAgent:   actor.UserAgent,
	})
}

// Query forwards to the store. Handlers are responsible for deriving the
// mandatory company pin from policy before calling.
func (r *Recorder) Query(ctx context.Context, filter QueryFilter) ([]Entry, int64, error) {
	entries, err := r.store.Query(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *Recorder) write(ctx context.Context, entry *Entry) {
	entry.ID = uuid.New().String()
	entry.Timestamp = r.now()

	err := r.store.Save(ctx, entry)
	metrics.RecordAuditWrite(err)
	if err != nil {
		logging.Warn().
			Err(err).
			Str("type", string(entry.Type)).
			Str("target_type", entry.TargetType).
			Msg("Operation log write failed")
	}
}

// Change is one field-level difference captured during an update.
type Change struct {
	Field string
	Old   string
	New   string
}

// DiffField appends a change when old and new differ.
func DiffField(changes []Change, field, oldVal, newVal string) []Change {
	if oldVal == newVal {
		return changes
	}
	return append(changes, Change{Field: field, Old: oldVal, New: newVal})
}

func describeChanges(targetType string, changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = fmt.Sprintf("%s: %q to %q", c.Field, c.Old, c.New)
	}
	return fmt.Sprintf("updated %s (%s)", targetType, strings.Join(parts, ", "))
}
