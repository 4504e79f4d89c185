// File: middleware/builtin/rate_limit.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed 60-second bucket rate limiter, reset lazily on the first request
// past the window's reset time. Grounded on the teacher's
// connectionsMu-guarded map pattern in highlevel.Server (a mutex-guarded
// per-key map, no background sweeper).

package builtin

import (
	"sync"
	"time"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

const rateLimitWindow = 60 * time.Second

type bucket struct {
	windowStart time.Time
	count       int
}

// RateLimit denies a client once it exceeds RequestsPerMinute requests
// within the current 60-second window.
type RateLimit struct {
	name              string
	requestsPerMinute int

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimit builds a RateLimit middleware instance named name.
func NewRateLimit(name string, cfg config.RateLimitConfig) *RateLimit {
	return &RateLimit{
		name:              name,
		requestsPerMinute: cfg.RequestsPerMinute,
		buckets:           make(map[string]*bucket),
	}
}

func (r *RateLimit) Name() string { return r.name }

// Process admits the request if the caller's per-window count is still
// at or below the configured limit.
func (r *RateLimit) Process(ctx *middleware.Context) middleware.Result {
	key := clientKey(ctx)
	now := time.Now()

	r.mu.Lock()
	b, ok := r.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rateLimitWindow {
		b = &bucket{windowStart: now, count: 0}
		r.buckets[key] = b
	}
	b.count++
	count := b.count
	r.mu.Unlock()

	if count > r.requestsPerMinute {
		return middleware.Deny(429, "Rate limit exceeded")
	}
	return middleware.Allow()
}

// TrackedClients reports the current bucket map size, for an ambient
// metrics hook (rate_limit.tracked_clients).
func (r *RateLimit) TrackedClients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func clientKey(ctx *middleware.Context) string {
	if ctx.RemoteAddr != nil {
		return ctx.RemoteAddr.String()
	}
	return "unknown"
}
