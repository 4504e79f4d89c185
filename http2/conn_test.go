package http2_test

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2/hpack"

	"github.com/momentics/edgeproxy/http2"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
)

func runHandshakeAndRequest(t *testing.T, h *http2.Handler, method, path string) (int, string) {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Serve(server, bufio.NewReader(server), 0)
		server.Close()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveClient(client, method, path)
	}()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("client exchange timed out")
	}

	status, body := readResponse(t, client)
	// Serve keeps reading frames until the peer goes away.
	client.Close()
	<-done
	return status, body
}

func driveClient(client net.Conn, method, path string) error {
	if _, err := client.Write([]byte(http2.Preface)); err != nil {
		return err
	}
	// consume the server's initial SETTINGS frame
	if _, err := http2.ReadFrameHeader(client); err != nil {
		return err
	}
	// client's own (empty) SETTINGS frame
	if err := http2.WriteFrame(client, http2.FrameSettings, 0, 0, nil); err != nil {
		return err
	}
	// consume the server's ACK of it
	if _, err := http2.ReadFrameHeader(client); err != nil {
		return err
	}

	headerBlock := buildHeadersFrameForTest(method, path)
	return http2.WriteFrame(client, http2.FrameHeaders, http2.FlagEndHeaders|http2.FlagEndStream, 1, headerBlock)
}

func buildHeadersFrameForTest(method, path string) []byte {
	var buf bytes.Buffer
	enc := hpack.NewEncoder(&buf)
	_ = enc.WriteField(hpack.HeaderField{Name: ":method", Value: method})
	_ = enc.WriteField(hpack.HeaderField{Name: ":path", Value: path})
	_ = enc.WriteField(hpack.HeaderField{Name: ":authority", Value: "client"})
	_ = enc.WriteField(hpack.HeaderField{Name: ":scheme", Value: "http"})
	return buf.Bytes()
}

func readResponse(t *testing.T, client net.Conn) (int, string) {
	t.Helper()
	fh, err := http2.ReadFrameHeader(client)
	require.NoError(t, err)
	require.Equal(t, http2.FrameHeaders, fh.Type)

	payload := make([]byte, fh.Length)
	_, err = io.ReadFull(client, payload)
	require.NoError(t, err)

	var status int
	dec := hpack.NewDecoder(4096, func(f hpack.HeaderField) {
		if f.Name == ":status" {
			status = atoi(f.Value)
		}
	})
	_, err = dec.Write(payload)
	require.NoError(t, err)

	if fh.Flags&http2.FlagEndStream != 0 {
		return status, ""
	}

	dfh, err := http2.ReadFrameHeader(client)
	require.NoError(t, err)
	require.Equal(t, http2.FrameData, dfh.Type)
	body := make([]byte, dfh.Length)
	_, err = io.ReadFull(client, body)
	require.NoError(t, err)
	return status, string(body)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func TestHTTP2HandshakeAndRouteMiss(t *testing.T) {
	routes := []routing.Route{
		{Pattern: mustPattern(t, "/api"), Upstream: "tcp://127.0.0.1:0", Methods: []string{"GET"}},
	}
	router, err := routing.Build(routes)
	require.NoError(t, err)

	h := &http2.Handler{Router: router, Pools: upstreampool.NewManager(upstreampool.Options{MaxConns: 1})}

	status, _ := runHandshakeAndRequest(t, h, "GET", "/other")
	require.Equal(t, 404, status)
}

func mustPattern(t *testing.T, s string) *routing.Pattern {
	t.Helper()
	p, err := routing.ParsePattern(s)
	require.NoError(t, err)
	return p
}
