// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package protocol implements the RFC6455 WebSocket wire format: the
// opening handshake (both as the accepting server and, when the proxy
// dials an upstream that itself speaks WebSocket, as the client) and the
// frame codec used by wsproxy's bidirectional bridge.
package protocol
