// File: detect/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package detect classifies a freshly-accepted connection as HTTP/1.1,
// HTTP/2, or WebSocket by peeking its leading bytes without consuming
// them, so the chosen handler (http1, http2, wsproxy) sees the
// connection exactly as the client sent it. Grounded on the teacher's
// transport/tcp/listener.go handshake reader (bufio.Reader over the
// accepted net.Conn, headers read line-oriented and lower-cased),
// generalized from a single-purpose WebSocket-only reader into a
// three-way classifier that never advances the stream.
package detect
