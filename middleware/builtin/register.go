// File: middleware/builtin/register.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package builtin

import (
	"fmt"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

// RegisterAll populates reg with factories for every recognized type
// tag. Called once by the server orchestrator before building any
// per-route chains.
func RegisterAll(reg *middleware.Registry) {
	reg.Register("rate_limit", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.RateLimit == nil {
			return nil, fmt.Errorf("rate_limit: missing config")
		}
		return NewRateLimit(cfg.Name, *cfg.RateLimit), nil
	})
	reg.Register("auth", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.Auth == nil {
			return nil, fmt.Errorf("auth: missing config")
		}
		return NewAuth(cfg.Name, *cfg.Auth)
	})
	reg.Register("acl", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.ACL == nil {
			return nil, fmt.Errorf("acl: missing config")
		}
		return NewACL(cfg.Name, *cfg.ACL), nil
	})
	reg.Register("cache", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.Cache == nil {
			return nil, fmt.Errorf("cache: missing config")
		}
		return NewCache(cfg.Name, *cfg.Cache), nil
	})
	reg.Register("cors", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.CORS == nil {
			return nil, fmt.Errorf("cors: missing config")
		}
		return NewCORS(cfg.Name, *cfg.CORS), nil
	})
	reg.Register("auth-scheme-router", func(cfg config.MiddlewareConfig) (middleware.Middleware, error) {
		if cfg.AuthSchemeRouter == nil {
			return nil, fmt.Errorf("auth-scheme-router: missing config")
		}
		return NewAuthSchemeRouter(cfg.Name, *cfg.AuthSchemeRouter), nil
	})
}
