// File: middleware/builtin/acl.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// acl middleware: default-deny role check. Allows iff some configured
// rule matches the request's path and method and lists a role the
// caller holds. Caller roles are read from the comma-separated
// ctx.Params["roles"] (set directly, or copied there by an auth
// middleware ahead of this one in the chain from a "roles" JWT claim).
// Path matching reuses routing.Pattern, the same literal/param/wildcard
// matcher used by the router itself.

package builtin

import (
	"strings"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/routing"
)

type aclRule struct {
	pattern *routing.Pattern
	methods map[string]struct{}
	roles   map[string]struct{}
}

// ACL implements the acl middleware tag.
type ACL struct {
	name  string
	rules []aclRule
}

// NewACL builds an ACL middleware from cfg. Rules whose pattern fails
// to parse are skipped (they can never match, so they're dropped
// rather than failing the whole server at startup over one bad rule).
func NewACL(name string, cfg config.ACLConfig) *ACL {
	rules := make([]aclRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		p, err := routing.ParsePattern(r.PathPattern)
		if err != nil {
			continue
		}
		methods := make(map[string]struct{}, len(r.Methods))
		for _, m := range r.Methods {
			methods[strings.ToUpper(m)] = struct{}{}
		}
		roles := make(map[string]struct{}, len(r.Roles))
		for _, role := range r.Roles {
			roles[role] = struct{}{}
		}
		rules = append(rules, aclRule{pattern: p, methods: methods, roles: roles})
	}
	return &ACL{name: name, rules: rules}
}

func (a *ACL) Name() string { return a.name }

func (a *ACL) Process(ctx *middleware.Context) middleware.Result {
	callerRoles := callerRoles(ctx)
	for _, rule := range a.rules {
		if len(rule.methods) > 0 {
			if _, ok := rule.methods[strings.ToUpper(ctx.Method)]; !ok {
				continue
			}
		}
		matched, _ := rule.pattern.Match(ctx.Path)
		if !matched {
			continue
		}
		for role := range callerRoles {
			if _, granted := rule.roles[role]; granted {
				return middleware.Allow()
			}
		}
	}
	return middleware.Deny(403, "Access denied")
}

func callerRoles(ctx *middleware.Context) map[string]struct{} {
	raw := ctx.Params["roles"]
	if raw == "" {
		raw = ctx.Params["jwt.roles"]
	}
	roles := make(map[string]struct{})
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			roles[r] = struct{}{}
		}
	}
	return roles
}
