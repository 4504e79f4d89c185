// File: http2/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package http2 implements the conservative HTTP/2 subset (C6):
// connection preface verification, a SETTINGS handshake,
// HEADERS/CONTINUATION decoded with golang.org/x/net/http2/hpack, DATA
// frame assembly, and a per-stream state machine (idle → open →
// half-closed → closed) dispatching into the same router/middleware/
// upstream path as http1. Server push and dynamic HPACK table resizing
// beyond the default are not implemented, per the resolved Open
// Question in this repository's expanded design notes. Grounded in the
// hpack usage shown by the retrieved pack's router-serve.go reference
// file, the closest example of header-compression wiring available.
package http2
