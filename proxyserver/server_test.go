package proxyserver_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/proxyserver"
)

// startEchoUpstream starts a plain TCP server that answers every request
// with a fixed HTTP/1.1 200 response, standing in for a real origin.
func startEchoUpstream(t *testing.T) string {
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
				_, _ = c.Read(buf)
				body := "upstream-ok"
				fmt.Fprintf(c, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestServerRoutesHTTP1RequestToUpstream(t *testing.T) {
	upstreamAddr := startEchoUpstream(t)

	cfg := config.Config{
		Host:        "127.0.0.1",
		Port:        freePort(t),
		ThreadCount: 2,
		Protocols:   []string{"http1"},
		Routes: []config.RouteConfig{
			{Pattern: "/api/*", Upstream: "tcp://" + upstreamAddr, Methods: []string{"GET"}},
		},
	}
	require.NoError(t, cfg.Validate())

	srv, err := proxyserver.New(cfg, nil)
	require.NoError(t, err)
	srv.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	proxyAddr := singleListenAddr(t, srv)

	conn, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /api/widgets HTTP/1.1\r\nHost: test\r\n\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Contains(t, string(resp), "200")
	require.Contains(t, string(resp), "upstream-ok")
}

func TestServerReturns404ForUnmatchedRoute(t *testing.T) {
	cfg := config.Config{
		Host:        "127.0.0.1",
		Port:        freePort(t),
		ThreadCount: 1,
		Protocols:   []string{"http1"},
	}
	require.NoError(t, cfg.Validate())

	srv, err := proxyserver.New(cfg, nil)
	require.NoError(t, err)
	srv.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	proxyAddr := singleListenAddr(t, srv)

	conn, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /nothing HTTP/1.1\r\nHost: test\r\n\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Contains(t, string(resp), "404")
}

// freePort asks the OS for a free TCP port by briefly binding to it,
// then releases it for the proxy's acceptor (bound with SO_REUSEPORT)
// to bind instead. Standard test idiom; carries the inherent small race
// of any "find a free port then reuse the number" approach.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// singleListenAddr returns the acceptor's bound address. New binds every
// listening socket synchronously, so it is available as soon as New
// returns — SO_REUSEPORT guarantees every listener on a fixed port
// reports the same address.
func singleListenAddr(t *testing.T, srv *proxyserver.Server) string {
	t.Helper()
	addrs := srv.ListenAddrs()
	require.NotEmpty(t, addrs)
	return addrs[0]
}
