// File: http1/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package http1 implements the HTTP/1.1 handler (C5): request-line and
// header parsing bounded by Content-Length, router/middleware dispatch,
// and forwarding to the matched route's upstream through a pooled
// connection. Parsing style (line-oriented bufio.Reader,
// strings.TrimSpace trimming; header keys are stored in canonical
// MIME form via net/textproto) is grounded on
// the teacher's transport/tcp/listener.go handshake reader, the
// closest teacher analog to a hand-rolled HTTP parser.
package http1
