package wsproxy_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/protocol"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
	"github.com/momentics/edgeproxy/wsproxy"
)

// startFakeUpstream accepts one connection, completes the server side of
// the RFC6455 handshake, writes a single masked text frame "Hello", then
// blocks until the connection closes. It exercises protocol.Accept from
// the opposite role wsproxy.Handler exercises it.
func startFakeUpstream(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		hdr, err := protocol.Accept(conn)
		if err != nil {
			return
		}
		if err := protocol.WriteAcceptResponse(conn, hdr); err != nil {
			return
		}

		frame, err := protocol.EncodeFrame(nil, protocol.OpcodeText, []byte("Hello"), true)
		if err != nil {
			return
		}
		_, _ = conn.Write(frame)

		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestWebSocketUpgradeEchoesUnmaskedFrame(t *testing.T) {
	upstreamAddr := startFakeUpstream(t)

	routes := []routing.Route{
		{Pattern: mustPattern(t, "/ws"), Upstream: "tcp://" + upstreamAddr, Methods: []string{"GET"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	h := &wsproxy.Handler{
		Router: router,
		Pools:  upstreampool.NewManager(upstreampool.Options{MaxConns: 1}),
	}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go h.Serve(serverConn, bufio.NewReader(serverConn), 0)

	dialer := gorilla.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return clientConn, nil
		},
		HandshakeTimeout: 3 * time.Second,
	}
	wsConn, resp, err := dialer.Dial("ws://proxy/ws", nil)
	require.NoError(t, err)
	require.Equal(t, 101, resp.StatusCode)
	defer wsConn.Close()

	require.NoError(t, wsConn.SetReadDeadline(time.Now().Add(3*time.Second)))
	msgType, payload, err := wsConn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, gorilla.TextMessage, msgType)
	require.Equal(t, "Hello", string(payload))
}

func TestWebSocketUpgradeRouteMissReturns404(t *testing.T) {
	router, err := routing.Build(nil)
	require.NoError(t, err)

	h := &wsproxy.Handler{Router: router, Pools: upstreampool.NewManager(upstreampool.Options{MaxConns: 1})}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	done := make(chan struct{})
	go func() {
		h.Serve(serverConn, bufio.NewReader(serverConn), 0)
		serverConn.Close()
		close(done)
	}()

	dialer := gorilla.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return clientConn, nil
		},
		HandshakeTimeout: 3 * time.Second,
	}
	_, resp, err := dialer.Dial("ws://proxy/missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 404, resp.StatusCode)
	<-done
}

func mustPattern(t *testing.T, s string) *routing.Pattern {
	t.Helper()
	p, err := routing.ParsePattern(s)
	require.NoError(t, err)
	return p
}
