// File: middleware/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package middleware

// Result is the outcome of one middleware's process() call. Success
// means "continue to the next middleware"; a cached response short-
// circuits the whole chain with CachedBody already populated.
type Result struct {
	Success      bool
	StatusCode   int
	ErrorMessage string

	// CachedBody, when non-nil, is returned directly to the client
	// without forwarding to the upstream (the cache middleware's hit
	// path). Only meaningful when Success is true.
	CachedBody []byte
}

// Allow is the zero-friction "continue" result.
func Allow() Result { return Result{Success: true} }

// Deny builds a chain-stopping denial with the given status and message.
func Deny(statusCode int, message string) Result {
	return Result{Success: false, StatusCode: statusCode, ErrorMessage: message}
}

// CacheHit short-circuits the chain with a cached response body.
func CacheHit(body []byte) Result {
	return Result{Success: true, CachedBody: body}
}
