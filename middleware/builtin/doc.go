// File: middleware/builtin/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package builtin implements the six recognized middleware type tags
// (rate_limit, auth, acl, cache, cors, auth-scheme-router) and exposes
// RegisterAll to populate a middleware.Registry with their factories.
package builtin
