// File: proxyserver/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package proxyserver wires routing, the middleware registry, upstream
// pools, the worker pool, and the acceptor into one running proxy
// instance, and dispatches each accepted connection to the http1,
// http2, or wsproxy handler per the protocol detector's verdict.
package proxyserver
