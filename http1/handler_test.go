package http1_test

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/http1"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/middleware/builtin"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
)

func pattern(t *testing.T, s string) *routing.Pattern {
	t.Helper()
	p, err := routing.ParsePattern(s)
	require.NoError(t, err)
	return p
}

func serveAndCapture(t *testing.T, h *http1.Handler, rawRequest string) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Serve(server, bufio.NewReader(server), 0)
		server.Close()
	}()

	go func() {
		_, _ = client.Write([]byte(rawRequest))
	}()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	respBytes, _ := io.ReadAll(client)
	<-done
	return string(respBytes)
}

func TestHandlerRouteMiss404(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/api"), Upstream: "tcp://127.0.0.1:0", Methods: []string{"GET"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	h := &http1.Handler{Router: router, Pools: upstreampool.NewManager(upstreampool.Options{MaxConns: 1})}

	resp := serveAndCapture(t, h, "GET /other HTTP/1.1\r\nHost: x\r\n\r\n")
	require.Contains(t, resp, "404")
}

func TestHandlerJWTMissingReturns401(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/api/users"), Upstream: "tcp://127.0.0.1:0", Methods: []string{"GET"}, Middlewares: []string{"jwt"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	auth, err := builtin.NewAuth("jwt", config.AuthConfig{Scheme: config.AuthSchemeJWT, JWTSecret: "s3cret"})
	require.NoError(t, err)
	chain := middleware.NewChain([]middleware.Middleware{auth})

	h := &http1.Handler{
		Router: router,
		Chains: map[*routing.Route]*middleware.Chain{&router.Routes()[0]: chain},
		Pools:  upstreampool.NewManager(upstreampool.Options{MaxConns: 1}),
	}

	resp := serveAndCapture(t, h, "GET /api/users HTTP/1.1\r\nHost: x\r\n\r\n")
	require.Contains(t, resp, "401")
	require.Contains(t, resp, "Unauthorized: Missing or invalid JWT token")
}

func TestHandlerRateLimitThirdRequestDenied(t *testing.T) {
	routes := []routing.Route{
		{Pattern: pattern(t, "/x"), Upstream: "tcp://127.0.0.1:0", Methods: []string{"GET"}, Middlewares: []string{"rl"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	rl := builtin.NewRateLimit("rl", config.RateLimitConfig{RequestsPerMinute: 2})
	chain := middleware.NewChain([]middleware.Middleware{rl})

	h := &http1.Handler{
		Router: router,
		Chains: map[*routing.Route]*middleware.Chain{&router.Routes()[0]: chain},
		Pools:  upstreampool.NewManager(upstreampool.Options{MaxConns: 1}),
	}

	r1 := serveAndCapture(t, h, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n")
	r2 := serveAndCapture(t, h, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n")
	r3 := serveAndCapture(t, h, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n")

	require.NotContains(t, r1, "429")
	require.NotContains(t, r2, "429")
	require.Contains(t, r3, "429")
	require.Contains(t, r3, "Rate limit exceeded")
}

func startStubOrigin(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				_, _ = c.Read(buf) // drain the forwarded request
				_, _ = c.Write([]byte(response))
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestHandlerForwardsAndStreamsUpstreamResponse(t *testing.T) {
	addr := startStubOrigin(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi")

	routes := []routing.Route{
		{Pattern: pattern(t, "/ping"), Upstream: "tcp://" + addr, Methods: []string{"GET"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	h := &http1.Handler{Router: router, Pools: upstreampool.NewManager(upstreampool.Options{MaxConns: 1})}

	resp := serveAndCapture(t, h, "GET /ping HTTP/1.1\r\nHost: client\r\n\r\n")
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, "hi")
}
