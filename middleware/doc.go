// File: middleware/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package middleware implements the typed middleware pipeline (C3): a
// Context borrowed-view over one request, a Result contract, a dynamic
// chain built from descriptors at startup, and a generic static chain
// for compile-time-known middleware lists. Dispatch shape is grounded on
// the teacher's highlevel.Middleware func-wrapper chain in
// highlevel/server.go, generalized from "func(next) func(*Conn)"
// wrapping to an interface-based process(ctx) Result contract per the
// typed-pipeline requirement.
package middleware
