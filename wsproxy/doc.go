// File: wsproxy/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package wsproxy bridges a client WebSocket connection to an upstream
// WebSocket origin. It performs the inbound RFC6455 handshake, runs the
// matched route's middleware chain over the upgrade request the same
// way http1.Handler does, dials the upstream through the shared
// upstreampool, performs the outbound handshake, and relays frames in
// both directions with the mask flag flipped at each hop — unmasked in
// the client-facing direction, masked in the upstream-facing direction.
package wsproxy
