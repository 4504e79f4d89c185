package detect_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/detect"
)

func TestClassifyHTTP2Preface(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\nrest-of-connection"), detect.BufReaderSize)
	proto, err := detect.Classify(br)
	require.NoError(t, err)
	require.Equal(t, detect.HTTP2, proto)
}

func TestClassifyPlainHTTP1(t *testing.T) {
	req := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	br := bufio.NewReaderSize(strings.NewReader(req), detect.BufReaderSize)
	proto, err := detect.Classify(br)
	require.NoError(t, err)
	require.Equal(t, detect.HTTP1, proto)
}

func TestClassifyWebSocketUpgrade(t *testing.T) {
	req := "GET /chat HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	br := bufio.NewReaderSize(strings.NewReader(req), detect.BufReaderSize)
	proto, err := detect.Classify(br)
	require.NoError(t, err)
	require.Equal(t, detect.WebSocket, proto)
}

func TestClassifyUnknownGarbage(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader("\x00\x01\x02garbage"), detect.BufReaderSize)
	proto, err := detect.Classify(br)
	require.NoError(t, err)
	require.Equal(t, detect.Unknown, proto)
}

func TestClassifyDoesNotConsumeBytes(t *testing.T) {
	req := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	br := bufio.NewReaderSize(strings.NewReader(req), detect.BufReaderSize)

	_, err := detect.Classify(br)
	require.NoError(t, err)

	line, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "GET /index.html HTTP/1.1\r\n", line)
}
