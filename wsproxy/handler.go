// File: wsproxy/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handler validates and completes the inbound WebSocket upgrade, runs
// the matched route's middleware chain over the upgrade request exactly
// as http1.Handler does for ordinary requests, dials the upstream
// origin, repeats the handshake on that leg, and starts the bidirectional
// frame bridge.

package wsproxy

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/edgeproxy/api"
	"github.com/momentics/edgeproxy/http1"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/protocol"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
)

// Handler serves WebSocket upgrade connections matched by the router
// against chains pre-built by the server orchestrator — the same wiring
// shape as http1.Handler and http2.Handler.
type Handler struct {
	Router            *routing.Router
	Chains            map[*routing.Route]*middleware.Chain
	Pools             *upstreampool.Manager
	Log               *zap.Logger
	ConnectionTimeout time.Duration
}

// Serve validates the upgrade request read from br, runs routing and
// middleware, bridges to an upstream WebSocket origin, and blocks until
// the bridge tears down. br must wrap conn directly; the detector only
// peeked the request, so Serve consumes it here.
func (h *Handler) Serve(conn net.Conn, br *bufio.Reader, numaHint int) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}

	req, err := http1.ParseRequest(br)
	if err != nil {
		log.Debug("wsproxy: malformed upgrade request", zap.Error(fmt.Errorf("%w: %v", api.ErrInvalidArgument, err)))
		writeHTTPStatus(conn, 400, "Bad Request")
		return
	}

	match, ok := h.Router.FindRoute(req.Method, req.Target)
	if !ok {
		log.Debug("wsproxy: no route matched", zap.String("target", req.Target), zap.Error(api.ErrNotFound))
		writeHTTPStatus(conn, 404, "Not Found")
		return
	}

	ctx := middleware.NewContext(req.Method, req.Target, req.Headers, conn.RemoteAddr(), nil, match.Route.Upstream)
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
		writeHTTPStatus(conn, result.StatusCode, result.ErrorMessage)
		return
	}
	if result.CachedBody != nil {
		writeHTTPOK(conn, result.CachedBody)
		return
	}

	clientHeader := make(http.Header, len(req.Headers))
	for k, v := range req.Headers {
		clientHeader.Set(k, v)
	}
	respHeader, err := protocol.AcceptRequest(&http.Request{Header: clientHeader})
	if err != nil {
		writeHTTPStatus(conn, 400, "Bad Request")
		return
	}

	upstream, upstreamBR, clientKey, respFromUpstream, err := h.dialUpstream(ctx, req)
	if err != nil {
		log.Warn("wsproxy: upstream handshake failed", zap.String("upstream", ctx.Upstream), zap.Error(err))
		writeHTTPStatus(conn, 502, "Bad Gateway")
		return
	}
	if err := protocol.VerifyAccept(clientKey, respFromUpstream.Header); err != nil {
		log.Warn("wsproxy: upstream accept mismatch", zap.Error(err))
		upstream.Close()
		writeHTTPStatus(conn, 502, "Bad Gateway")
		return
	}

	if err := protocol.WriteAcceptResponse(conn, respHeader); err != nil {
		upstream.Close()
		return
	}

	bridge(conn, br, upstream, upstreamBR, log)
}

// dialUpstream acquires a pooled connection to the matched upstream,
// performs the outbound RFC6455 handshake over it, and returns the raw
// connection alongside a bufio.Reader positioned right after the
// handshake response (preserving any bytes the upstream already sent).
// The pooled slot is intentionally never released back to the free
// list: a WebSocket connection owns its underlying TCP connection for
// the life of the bridge rather than being returned for keep-alive
// reuse between unrelated requests.
func (h *Handler) dialUpstream(ctx *middleware.Context, req *http1.Request) (net.Conn, *bufio.Reader, string, *http.Response, error) {
	pl, err := h.Pools.Get(ctx.Upstream)
	if err != nil {
		return nil, nil, "", nil, err
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeoutOr(h.ConnectionTimeout))
	defer cancel()
	pooled, err := pl.Acquire(dialCtx)
	if err != nil {
		return nil, nil, "", nil, err
	}

	u, err := url.Parse(ctx.Upstream)
	if err != nil {
		pooled.Release()
		return nil, nil, "", nil, fmt.Errorf("wsproxy: parse upstream %q: %w", ctx.Upstream, err)
	}
	targetURL := "http://" + u.Host + req.Target

	upgradeReq, clientKey, err := protocol.BuildUpgradeRequest(targetURL, u.Host)
	if err != nil {
		pooled.Release()
		return nil, nil, "", nil, err
	}
	if err := upgradeReq.Write(pooled); err != nil {
		pooled.Release()
		return nil, nil, "", nil, fmt.Errorf("wsproxy: write upstream handshake: %w", err)
	}

	upstreamBR := bufio.NewReader(pooled)
	resp, err := http.ReadResponse(upstreamBR, upgradeReq)
	if err != nil {
		pooled.Release()
		return nil, nil, "", nil, fmt.Errorf("wsproxy: read upstream handshake response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		pooled.Release()
		return nil, nil, "", nil, fmt.Errorf("wsproxy: upstream refused upgrade: status %d", resp.StatusCode)
	}

	return pooled, upstreamBR, clientKey, resp, nil
}

func dialTimeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 5 * time.Second
}

func writeHTTPStatus(conn net.Conn, code int, reason string) {
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		code, reason, len(reason), reason)
	_, _ = conn.Write([]byte(resp))
}

func writeHTTPOK(conn net.Conn, body []byte) {
	resp := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n", len(body))
	_, _ = conn.Write([]byte(resp))
	_, _ = conn.Write(body)
}
