// File: middleware/builtin/auth_scheme_router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// auth-scheme-router: always passes; rewrites the route's upstream URL
// based on the bearer token's scheme prefix (e.g. "Authorization:
// svc-a <token>" routes to the upstream configured for scheme "svc-a").
// A request with no recognized scheme prefix leaves ctx.Upstream
// untouched, so a route's statically configured upstream remains the
// default.

package builtin

import (
	"strings"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
)

// AuthSchemeRouter implements the auth-scheme-router middleware tag.
type AuthSchemeRouter struct {
	name            string
	schemeUpstreams map[string]string
}

// NewAuthSchemeRouter builds an AuthSchemeRouter middleware from cfg.
func NewAuthSchemeRouter(name string, cfg config.AuthSchemeRouterConfig) *AuthSchemeRouter {
	return &AuthSchemeRouter{name: name, schemeUpstreams: cfg.SchemeUpstreams}
}

func (a *AuthSchemeRouter) Name() string { return a.name }

func (a *AuthSchemeRouter) Process(ctx *middleware.Context) middleware.Result {
	header, ok := ctx.Header("Authorization")
	if !ok {
		return middleware.Allow()
	}
	scheme, _, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return middleware.Allow()
	}
	if upstream, ok := a.schemeUpstreams[scheme]; ok {
		ctx.Upstream = upstream
	}
	return middleware.Allow()
}
