// File: middleware/builtin/cors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package builtin

import (
	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

// CORS implements the cors middleware tag: passes requests with no
// Origin header, or an Origin matching "*" or an explicitly configured
// origin; denies everything else.
type CORS struct {
	name      string
	allowAll  bool
	allowed   map[string]struct{}
}

// NewCORS builds a CORS middleware from cfg.
func NewCORS(name string, cfg config.CORSConfig) *CORS {
	c := &CORS{name: name, allowed: make(map[string]struct{}, len(cfg.AllowedOrigins))}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			c.allowAll = true
			continue
		}
		c.allowed[o] = struct{}{}
	}
	return c
}

func (c *CORS) Name() string { return c.name }

func (c *CORS) Process(ctx *middleware.Context) middleware.Result {
	origin, ok := ctx.Header("Origin")
	if !ok || origin == "" {
		return middleware.Allow()
	}
	if c.allowAll {
		return middleware.Allow()
	}
	if _, ok := c.allowed[origin]; ok {
		return middleware.Allow()
	}
	return middleware.Deny(403, "Origin not allowed")
}
