// File: middleware/middleware.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package middleware

// Middleware is the trait-object-equivalent interface every built-in and
// host-registered middleware implements. Dispatch happens through this
// interface in the dynamic chain; the static chain monomorphizes over
// concrete types but those types satisfy this interface too, so both
// realizations share builtin/ constructors.
type Middleware interface {
	// Process evaluates one request against this middleware's rule. On
	// Result.Success == false evaluation of the whole chain stops.
	Process(ctx *Context) Result

	// Name identifies this middleware instance for logging/metrics.
	Name() string
}
