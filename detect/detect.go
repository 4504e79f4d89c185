// File: detect/detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package detect

import (
	"bufio"
	"bytes"
	"strings"
)

// Protocol is the classifier's verdict for a connection.
type Protocol int

const (
	Unknown Protocol = iota
	HTTP1
	HTTP2
	WebSocket
)

func (p Protocol) String() string {
	switch p {
	case HTTP1:
		return "http1"
	case HTTP2:
		return "http2"
	case WebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// http2Preface is the fixed connection preface that opens every
// HTTP/2 connection, per RFC 7540 §3.5.
const http2Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// peekPrefixLen is the number of leading bytes inspected to recognize
// the HTTP/2 preface or an HTTP/1.1 method token.
const peekPrefixLen = len(http2Preface)

// headerPeekLen bounds how far the classifier looks for the
// Upgrade/Connection header pair when distinguishing WebSocket from
// plain HTTP/1.1. BufReaderSize should be at least this large for the
// peek to see a typical request's full header block.
const headerPeekLen = 8192

// http1MethodPrefixes are the method tokens that mark a connection as
// at least a candidate HTTP/1.1 request.
var http1MethodPrefixes = []string{
	"GET ", "POST ", "PUT ", "DELETE ", "HEAD ", "OPTIONS ", "PATCH ", "CONNECT ", "TRACE ",
}

// BufReaderSize is the minimum buffer size callers should construct
// their bufio.Reader with before calling Classify, so header-based
// WebSocket detection can peek a full request's headers.
const BufReaderSize = headerPeekLen

// Classify peeks the leading bytes of br without consuming them and
// returns the detected protocol. br must wrap the raw connection
// directly (no intervening consumption) and should be sized at least
// BufReaderSize for reliable WebSocket detection.
func Classify(br *bufio.Reader) (Protocol, error) {
	prefix, err := br.Peek(peekPrefixLen)
	if err != nil && len(prefix) == 0 {
		return Unknown, err
	}
	if string(prefix) == http2Preface {
		return HTTP2, nil
	}

	if !hasHTTP1MethodPrefix(prefix) {
		return Unknown, nil
	}

	// Inspect only bytes already received, reading more only until the
	// header block's blank line arrives or headerPeekLen is reached.
	headerBlock, _ := br.Peek(br.Buffered())
	for !bytes.Contains(headerBlock, []byte("\r\n\r\n")) && len(headerBlock) < headerPeekLen {
		if _, err := br.Peek(len(headerBlock) + 1); err != nil {
			break
		}
		headerBlock, _ = br.Peek(br.Buffered())
	}
	if looksLikeWebSocketUpgrade(headerBlock) {
		return WebSocket, nil
	}
	return HTTP1, nil
}

func hasHTTP1MethodPrefix(prefix []byte) bool {
	for _, p := range http1MethodPrefixes {
		if bytes.HasPrefix(prefix, []byte(p)) {
			return true
		}
	}
	return false
}

// looksLikeWebSocketUpgrade reports whether the peeked header block
// contains both an "Upgrade: websocket" and a "Connection: Upgrade"
// header, matched case-insensitively per spec.
func looksLikeWebSocketUpgrade(block []byte) bool {
	text := strings.ToLower(string(block))
	return strings.Contains(text, "upgrade: websocket") && strings.Contains(text, "connection: upgrade")
}
