// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter bounds login attempts per client IP. It exists on top of the
// general API rate limit because login is the one endpoint worth brute
// forcing.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*loginLimiterEntry

	limit rate.Limit
	burst int
}

type loginLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows attempts tries per window for each client IP.
func NewLoginLimiter(attempts int, window time.Duration) *LoginLimiter {
	if attempts <= 0 {
		attempts = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &LoginLimiter{
		limiters: make(map[string]*loginLimiterEntry),
		limit:    rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether another login attempt from this request's IP may
// proceed.
func (l *LoginLimiter) Allow(r *http.Request) bool {
	ip := clientIP(r)

	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &loginLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// cleanupLoop drops limiters idle for over an hour so the map does not grow
// with every IP ever seen.
func (l *LoginLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// clientIP extracts the client address, honoring X-Forwarded-For from a
// fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
