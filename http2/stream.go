// File: http2/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http2

import "bytes"

// StreamState is a stream's position in the RFC 7540 §5.1 state
// machine, restricted to the transitions a request/response proxy
// exercises (no server push, so "reserved" states are unused).
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamOpen
	StreamHalfClosedRemote // client sent END_STREAM; server may still respond
	StreamClosed
)

// stream tracks one HTTP/2 stream's accumulated request state while
// its HEADERS/CONTINUATION/DATA frames arrive.
type stream struct {
	id    uint32
	state StreamState

	method    string
	path      string
	authority string
	headers   map[string]string

	headersComplete bool // END_HEADERS seen
	pendingEndStream bool // END_STREAM arrived before END_HEADERS
	body             bytes.Buffer

	recvWindow int32
}

func newStream(id uint32) *stream {
	return &stream{
		id:         id,
		state:      StreamIdle,
		headers:    make(map[string]string),
		recvWindow: DefaultInitialWindowSize,
	}
}
