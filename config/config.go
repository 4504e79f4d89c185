// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Materialized configuration types consumed by the core. The core never
// parses JSON itself: cmd/edgeproxy decodes a file into Config and hands
// it to proxyserver.New. MiddlewareConfig is a tagged variant rather than
// a raw map so the middleware registry never does ad hoc JSON digging
// mid-pipeline.

package config

import "fmt"

// Config is the top-level materialized configuration.
type Config struct {
	Host                string             `json:"host"`
	Port                int                `json:"port"`
	ThreadCount         int                `json:"thread_count"`
	Backlog             int                `json:"backlog"`
	MaxConnections      int                `json:"max_connections"`
	ConnectionTimeoutMS int                `json:"connection_timeout_ms"`
	Protocols           []string           `json:"protocols"`
	TLS                 TLSConfig          `json:"tls"`
	Routes              []RouteConfig      `json:"routes"`
	Middlewares         []MiddlewareConfig `json:"middlewares"`
}

// TLSConfig configures optional TLS termination, including per-SNI certs.
type TLSConfig struct {
	Enabled  bool               `json:"enabled"`
	CertPath string             `json:"cert_path"`
	KeyPath  string             `json:"key_path"`
	SNICerts map[string]SNICert `json:"sni_certs"`
}

// SNICert is one entry in TLSConfig.SNICerts, keyed by server name.
type SNICert struct {
	CertPath string `json:"cert_path"`
	KeyPath  string `json:"key_path"`
}

// RouteConfig is one entry in Config.Routes: a path pattern bound to an
// upstream, the methods it accepts, and the named middlewares to run.
type RouteConfig struct {
	Pattern     string   `json:"pattern"`
	Upstream    string   `json:"upstream"`
	Methods     []string `json:"methods"`
	Middlewares []string `json:"middlewares"`
}

// MiddlewareConfig names one configured middleware instance. Type selects
// which of the pointer fields below is populated; exactly one must be
// non-nil for a recognized Type.
type MiddlewareConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`

	RateLimit        *RateLimitConfig        `json:"rate_limit,omitempty"`
	Auth             *AuthConfig             `json:"auth,omitempty"`
	ACL              *ACLConfig              `json:"acl,omitempty"`
	Cache            *CacheConfig            `json:"cache,omitempty"`
	CORS             *CORSConfig             `json:"cors,omitempty"`
	AuthSchemeRouter *AuthSchemeRouterConfig `json:"auth_scheme_router,omitempty"`
}

// RateLimitConfig configures the rate_limit middleware's fixed 60-second
// bucket.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

// AuthScheme selects between the two recognized auth middleware variants.
type AuthScheme string

const (
	AuthSchemeJWT    AuthScheme = "jwt"
	AuthSchemeAPIKey AuthScheme = "api_key"
)

// AuthConfig configures the auth middleware. JWT fields apply when
// Scheme is AuthSchemeJWT; APIKeys/HeaderName apply to AuthSchemeAPIKey.
type AuthConfig struct {
	Scheme     AuthScheme `json:"scheme"`
	JWTSecret  string     `json:"jwt_secret,omitempty"`
	HeaderName string     `json:"header_name,omitempty"`
	APIKeys    []string   `json:"api_keys,omitempty"`
}

// ACLConfig configures the acl middleware's rule list.
type ACLConfig struct {
	Rules []ACLRule `json:"rules"`
}

// ACLRule grants roles access to a path pattern and method set.
type ACLRule struct {
	PathPattern string   `json:"path_pattern"`
	Methods     []string `json:"methods"`
	Roles       []string `json:"roles"`
}

// CacheConfig configures the cache middleware's absolute TTL.
type CacheConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// CORSConfig configures the cors middleware's allowed origins.
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// AuthSchemeRouterConfig maps a bearer token scheme prefix (e.g. "svc")
// to the upstream URL that scheme should be routed to.
type AuthSchemeRouterConfig struct {
	SchemeUpstreams map[string]string `json:"scheme_upstreams"`
}

// Validate checks structural invariants that aren't naturally expressed
// in the JSON encoding (exactly one variant field per middleware type).
func (c *Config) Validate() error {
	for i, mw := range c.Middlewares {
		if err := mw.validate(); err != nil {
			return fmt.Errorf("config: middlewares[%d] %q: %w", i, mw.Name, err)
		}
	}
	for i, r := range c.Routes {
		if r.Pattern == "" {
			return fmt.Errorf("config: routes[%d]: empty pattern", i)
		}
		if r.Upstream == "" {
			return fmt.Errorf("config: routes[%d]: empty upstream", i)
		}
	}
	return nil
}

func (m *MiddlewareConfig) validate() error {
	set := 0
	for _, present := range []bool{
		m.RateLimit != nil,
		m.Auth != nil,
		m.ACL != nil,
		m.Cache != nil,
		m.CORS != nil,
		m.AuthSchemeRouter != nil,
	} {
		if present {
			set++
		}
	}
	switch m.Type {
	case "rate_limit", "auth", "acl", "cache", "cors", "auth-scheme-router":
		if set != 1 {
			return fmt.Errorf("expected exactly one config variant for type %q, got %d", m.Type, set)
		}
	default:
		// Host-registered custom tags carry their own config shape
		// outside this struct's known fields; nothing to validate here.
	}
	return nil
}
