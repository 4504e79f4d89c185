// File: http1/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handler orchestrates one HTTP/1.1 connection: parse, route, run the
// middleware chain, forward to the matched upstream, stream the
// response back. I/O buffers are drawn from the NUMA-aware pool
// package rather than plain make([]byte, n), consistent with the
// ambient buffer-pool stack shared with http2/wsproxy.

package http1

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/edgeproxy/api"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/pool"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
)

const responseChunkSize = 32 * 1024

// Handler serves HTTP/1.1 connections matched by the router against
// chains pre-built by the server orchestrator.
type Handler struct {
	Router            *routing.Router
	Chains            map[*routing.Route]*middleware.Chain
	Pools             *upstreampool.Manager
	Log               *zap.Logger
	ConnectionTimeout time.Duration
}

// Serve parses and forwards one request read from br over conn. br must
// wrap conn directly (the detector's bufio.Reader, unconsumed).
// numaHint biases the I/O buffer pool selection.
func (h *Handler) Serve(conn net.Conn, br *bufio.Reader, numaHint int) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}

	if h.ConnectionTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(h.ConnectionTimeout))
	}

	req, err := ParseRequest(br)
	if err != nil {
		log.Debug("http1: malformed request", zap.Error(err))
		writeStatus(conn, 400, "Bad Request", "")
		return
	}

	match, ok := h.Router.FindRoute(req.Method, req.Target)
	if !ok {
		log.Debug("http1: no route matched", zap.String("target", req.Target), zap.Error(api.ErrNotFound))
		writeStatus(conn, 404, "Not Found", "")
		return
	}

	ctx := middleware.NewContext(req.Method, req.Target, req.Headers, conn.RemoteAddr(), req.Body, match.Route.Upstream)
	for k, v := range match.Bindings {
		ctx.Params[k] = v
	}

	chain := h.Chains[match.Route]
	var result middleware.Result
	if chain != nil {
		result = chain.Process(ctx)
	} else {
		result = middleware.Allow()
	}

	if !result.Success {
		writeStatus(conn, result.StatusCode, statusText(result.StatusCode), result.ErrorMessage)
		return
	}
	if result.CachedBody != nil {
		writeOK(conn, result.CachedBody)
		return
	}

	h.forward(conn, req, ctx, chain, numaHint, log)
}

func (h *Handler) forward(conn net.Conn, req *Request, ctx *middleware.Context, chain *middleware.Chain, numaHint int, log *zap.Logger) {
	pl, err := h.Pools.Get(ctx.Upstream)
	if err != nil {
		log.Warn("upstream pool unavailable", zap.String("upstream", ctx.Upstream), zap.Error(err))
		writeStatus(conn, 502, "Bad Gateway", "")
		return
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeoutOr(h.ConnectionTimeout))
	defer cancel()
	upstream, err := pl.Acquire(dialCtx)
	if err != nil {
		log.Warn("upstream acquire failed", zap.String("upstream", ctx.Upstream), zap.Error(err))
		writeStatus(conn, 502, "Bad Gateway", "")
		return
	}
	defer upstream.Release()

	if err := writeUpstreamRequest(upstream, req); err != nil {
		log.Warn("upstream write failed", zap.Error(err))
		writeStatus(conn, 502, "Bad Gateway", "")
		return
	}

	bufPool := pool.DefaultManager().GetPool(numaHint)
	buf := bufPool.Get(responseChunkSize, numaHint)
	defer bufPool.Put(buf)

	var captured *bytes.Buffer
	if req.Method == "GET" && chain != nil {
		captured = &bytes.Buffer{}
	}

	firstByteSent := false
	for {
		n, rerr := upstream.Read(buf.Data)
		if n > 0 {
			if _, werr := conn.Write(buf.Data[:n]); werr != nil {
				return
			}
			firstByteSent = true
			if captured != nil {
				captured.Write(buf.Data[:n])
			}
		}
		if rerr != nil {
			if rerr != io.EOF && !firstByteSent {
				writeStatus(conn, 502, "Bad Gateway", "")
			}
			break
		}
	}

	if captured != nil && chain != nil {
		// Only the body is cached: a hit is replayed through writeOK,
		// which writes its own status line and headers.
		raw := captured.Bytes()
		if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
			chain.StoreResponse(ctx, raw[i+4:])
		}
	}
}

func dialTimeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 5 * time.Second
}

// writeUpstreamRequest re-serializes req onto upstream: the client's
// request line, header pass-through with a synthesized Host when
// absent and a synthesized Content-Length when the body is non-empty
// but none was supplied, then the body.
func writeUpstreamRequest(upstream net.Conn, req *Request) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s\r\n", req.Method, req.Target, req.Version)

	wroteHost := false
	wroteLength := false
	for name, value := range req.Headers {
		if name == "Host" {
			wroteHost = true
		}
		if name == "Content-Length" {
			wroteLength = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	if !wroteHost {
		fmt.Fprintf(&b, "Host: %s\r\n", upstreamHost(upstream))
	}
	if !wroteLength && len(req.Body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(req.Body))
	}
	b.WriteString("\r\n")
	b.Write(req.Body)

	_, err := upstream.Write(b.Bytes())
	return err
}

func upstreamHost(conn net.Conn) string {
	if conn.RemoteAddr() != nil {
		return conn.RemoteAddr().String()
	}
	return ""
}

func writeStatus(conn net.Conn, code int, reason, body string) {
	if body == "" {
		body = reason
	}
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		code, reason, len(body), body)
	_, _ = conn.Write([]byte(resp))
}

func writeOK(conn net.Conn, body []byte) {
	resp := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n", len(body))
	_, _ = conn.Write([]byte(resp))
	_, _ = conn.Write(body)
}

func statusText(code int) string {
	switch code {
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 429:
		return "Too Many Requests"
	case 502:
		return "Bad Gateway"
	case 504:
		return "Gateway Timeout"
	default:
		return strconv.Itoa(code)
	}
}
