// File: middleware/builtin/cache.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// cache middleware: GET-only, absolute monotonic TTL, cleanup on each
// access. Process() only ever reads the cache (miss → Allow, hit →
// CacheHit short-circuit); population happens after a successful
// upstream round trip, via StoreResponse, which the resolved chain's
// StoreResponse forwards to every middleware implementing
// ResponseCacher after the HTTP handler relays a GET. Grounded on the
// mutex-guarded map idiom shared with RateLimit/ACL.

package builtin

import (
	"sync"
	"time"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// Cache implements the cache middleware tag.
type Cache struct {
	name string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache builds a Cache middleware from cfg.
func NewCache(name string, cfg config.CacheConfig) *Cache {
	return &Cache{
		name:    name,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Name() string { return c.name }

func (c *Cache) Process(ctx *middleware.Context) middleware.Result {
	if ctx.Method != "GET" {
		return middleware.Allow()
	}
	key := cacheKey(ctx)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().After(entry.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		return middleware.CacheHit(entry.body)
	}
	return middleware.Allow()
}

// StoreResponse records body for ctx's key, expiring it after the
// configured TTL. Called by the HTTP handler after a successful GET
// response is obtained from the upstream.
func (c *Cache) StoreResponse(ctx *middleware.Context, body []byte) {
	if ctx.Method != "GET" {
		return
	}
	c.mu.Lock()
	c.entries[cacheKey(ctx)] = cacheEntry{body: body, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func cacheKey(ctx *middleware.Context) string {
	return ctx.Method + " " + ctx.Path
}
