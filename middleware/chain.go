// File: middleware/chain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package middleware

// Chain is the dynamic middleware chain: a vector of interface handles
// built from descriptors at startup. Process runs them in declared
// order and stops at the first denial.
type Chain struct {
	middlewares []Middleware
}

// NewChain builds a Chain directly from already-constructed middleware
// instances, bypassing the Registry. Used by tests and by hosts that
// assemble a chain programmatically instead of from config descriptors.
func NewChain(ms []Middleware) *Chain {
	return &Chain{middlewares: ms}
}

// Process runs every middleware in order against ctx. On the first
// Result with Success == false, evaluation stops and that Result is
// returned. If every middleware allows, the final Allow()-equivalent
// result is returned (a cache hit may still carry a CachedBody).
func (c *Chain) Process(ctx *Context) Result {
	for _, m := range c.middlewares {
		res := m.Process(ctx)
		if !res.Success {
			return res
		}
		if res.CachedBody != nil {
			return res
		}
	}
	return Allow()
}

// Len reports how many middlewares are in the chain.
func (c *Chain) Len() int { return len(c.middlewares) }
