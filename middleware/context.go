// File: middleware/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package middleware

import "net"

// Context is a borrowed-view struct over one request, valid only for the
// duration of that request's pipeline evaluation. Middlewares mutate
// Upstream (routing middleware) and Params (claims, extracted route
// bindings) in place; they must not retain a Context past process().
type Context struct {
	Method     string
	Path       string
	Headers    map[string]string
	RemoteAddr net.Addr
	Body       []byte

	// Upstream is the route's upstream URL. auth-scheme-router rewrites
	// it before the connection pool is consulted.
	Upstream string

	// Params is scratch storage shared across the chain: route path
	// bindings on entry, plus anything a middleware adds (JWT claims
	// under "jwt.*", cache keys, etc).
	Params map[string]string
}

// NewContext builds a Context for one request. Headers and Params are
// never nil so middlewares can index them unconditionally.
func NewContext(method, path string, headers map[string]string, remote net.Addr, body []byte, upstream string) *Context {
	if headers == nil {
		headers = map[string]string{}
	}
	return &Context{
		Method:     method,
		Path:       path,
		Headers:    headers,
		RemoteAddr: remote,
		Body:       body,
		Upstream:   upstream,
		Params:     map[string]string{},
	}
}

// Header returns the named header, case-sensitive as stored by the
// caller (http1/http2 normalize to canonical case before constructing
// the Context).
func (c *Context) Header(name string) (string, bool) {
	v, ok := c.Headers[name]
	return v, ok
}
