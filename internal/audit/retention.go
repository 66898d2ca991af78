// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/metrics"
)

// RetentionService purges operation log entries older than the retention
// window. It implements suture.Service and runs under the root supervisor;
// a crash gets the service restarted with backoff rather than silently
// stopping the purge.
type RetentionService struct {
	store     Store
	retention time.Duration
	interval  time.Duration

	now func() time.Time
}

// NewRetentionService creates the purge service. retention is how long
// entries are kept; interval is how often the purge runs.
func NewRetentionService(store Store, retention, interval time.Duration) *RetentionService {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionService{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Serve implements suture.Service. Runs one purge immediately, then on every
// tick until the context is canceled.
func (s *RetentionService) Serve(ctx context.Context) error {
	s.purge(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *RetentionService) purge(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	removed, err := s.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Warn().Err(err).Msg("Operation log purge failed")
		return
	}
	if removed > 0 {
		metrics.AuditPurgedEntries.Add(float64(removed))
		logging.Info().
			Int64("removed", removed).
			Time("cutoff", cutoff).
			Msg("Operation log entries purged")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *RetentionService) String() string {
	return "audit-retention"
}
