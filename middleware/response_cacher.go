// File: middleware/response_cacher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package middleware

// ResponseCacher is implemented by middlewares that need to observe a
// successful upstream response after the chain already allowed the
// request (the cache built-in, on a GET miss). Handlers call
// Chain.StoreResponse once the upstream round trip completes.
type ResponseCacher interface {
	StoreResponse(ctx *Context, body []byte)
}

// StoreResponse forwards body to every middleware in the chain that
// implements ResponseCacher. Safe to call even when no middleware
// caches responses.
func (c *Chain) StoreResponse(ctx *Context, body []byte) {
	for _, m := range c.middlewares {
		if rc, ok := m.(ResponseCacher); ok {
			rc.StoreResponse(ctx, body)
		}
	}
}
