// File: http2/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handler drives one HTTP/2 connection end to end: preface
// verification, SETTINGS exchange, the frame read loop dispatching
// HEADERS/CONTINUATION/DATA into per-stream state, and forwarding
// completed requests into the shared router/middleware/upstream path
// (mirroring http1.Handler.forward, translated to and from HTTP/2
// framing at the edges).

package http2

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2/hpack"

	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
)

// Handler serves HTTP/2 connections matched by the router against
// chains pre-built by the server orchestrator — the same wiring shape
// as http1.Handler.
type Handler struct {
	Router            *routing.Router
	Chains            map[*routing.Route]*middleware.Chain
	Pools             *upstreampool.Manager
	Log               *zap.Logger
	ConnectionTimeout time.Duration
}

// Serve runs the connection preface check, SETTINGS handshake, and
// frame loop for one accepted HTTP/2 connection. br must wrap conn
// directly; the detector only peeked the preface, so Serve consumes it
// here.
func (h *Handler) Serve(conn net.Conn, br *bufio.Reader, numaHint int) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}

	var prefaceBuf [len(Preface)]byte
	if _, err := readFull(br, prefaceBuf[:]); err != nil || string(prefaceBuf[:]) != Preface {
		return
	}
	if err := writeInitialSettings(conn); err != nil {
		return
	}

	c := &connState{
		conn:     conn,
		br:       br,
		log:      log,
		streams:  make(map[uint32]*stream),
		handler:  h,
		numaHint: numaHint,
		encMu:    sync.Mutex{},
	}
	c.decoder = hpack.NewDecoder(4096, c.onHeaderField)
	c.encodeBuf = &bytes.Buffer{}
	c.encoder = hpack.NewEncoder(c.encodeBuf)

	c.loop()
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := br.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// connState holds the per-connection decoder/encoder and stream table.
// HTTP/2 allows multiple interleaved streams per connection, but this
// subset processes frames (and dispatches completed requests) strictly
// sequentially on the connection's own goroutine — "first-ready
// first-served" rather than true concurrent stream execution, which
// spec explicitly permits ("stream priorities not honored beyond
// first-ready first-served").
type connState struct {
	conn net.Conn
	br   *bufio.Reader
	log  *zap.Logger

	decoder *hpack.Decoder
	encoder *hpack.Encoder
	encodeBuf *bytes.Buffer
	encMu     sync.Mutex

	streams map[uint32]*stream
	current *stream // stream currently receiving HEADERS/CONTINUATION

	handler  *Handler
	numaHint int
}

func (c *connState) onHeaderField(f hpack.HeaderField) {
	if c.current == nil {
		return
	}
	switch f.Name {
	case ":method":
		c.current.method = f.Value
	case ":path":
		c.current.path = f.Value
	case ":authority":
		c.current.authority = f.Value
	case ":scheme":
		// not needed downstream; the proxy always forwards over the
		// pooled upstream connection's own scheme.
	default:
		c.current.headers[f.Name] = f.Value
	}
}

func (c *connState) loop() {
	for {
		fh, err := ReadFrameHeader(c.br)
		if err != nil {
			return
		}
		payload := make([]byte, fh.Length)
		if _, err := readFull(c.br, payload); err != nil {
			return
		}
		if err := c.handleFrame(fh, payload); err != nil {
			return
		}
	}
}

func (c *connState) handleFrame(fh FrameHeader, payload []byte) error {
	switch fh.Type {
	case FrameSettings:
		return c.handleSettings(fh, payload)
	case FramePing:
		return c.handlePing(fh, payload)
	case FrameGoAway:
		return fmt.Errorf("http2: peer sent GOAWAY")
	case FrameWindowUpdate:
		return nil
	case FrameHeaders:
		return c.handleHeaders(fh, payload)
	case FrameContinuation:
		return c.handleContinuation(fh, payload)
	case FrameData:
		return c.handleData(fh, payload)
	default:
		return nil // unknown frame types are ignored, per RFC 7540 §4.1
	}
}

func (c *connState) handleSettings(fh FrameHeader, payload []byte) error {
	if fh.Flags&FlagAck != 0 {
		return nil
	}
	_ = decodeSettings(payload)
	return writeSettingsAck(c.conn)
}

func (c *connState) handlePing(fh FrameHeader, payload []byte) error {
	if fh.Flags&FlagAck != 0 {
		return nil
	}
	return WriteFrame(c.conn, FramePing, FlagAck, 0, payload)
}

func (c *connState) handleHeaders(fh FrameHeader, payload []byte) error {
	s := newStream(fh.StreamID)
	s.state = StreamOpen
	c.streams[fh.StreamID] = s
	c.current = s

	if _, err := c.decoder.Write(stripPadding(fh, payload)); err != nil {
		return err
	}

	if fh.Flags&FlagEndHeaders != 0 {
		s.headersComplete = true
		c.current = nil
	}
	if fh.Flags&FlagEndStream != 0 {
		s.state = StreamHalfClosedRemote
		if s.headersComplete {
			c.dispatch(s)
		} else {
			s.pendingEndStream = true
		}
	}
	return nil
}

func (c *connState) handleContinuation(fh FrameHeader, payload []byte) error {
	s, ok := c.streams[fh.StreamID]
	if !ok {
		return nil
	}
	c.current = s
	if _, err := c.decoder.Write(payload); err != nil {
		return err
	}
	if fh.Flags&FlagEndHeaders != 0 {
		s.headersComplete = true
		c.current = nil
		if s.pendingEndStream {
			c.dispatch(s)
		}
	}
	return nil
}

func (c *connState) handleData(fh FrameHeader, payload []byte) error {
	s, ok := c.streams[fh.StreamID]
	if !ok {
		return nil
	}
	body := stripPadding(fh, payload)
	s.body.Write(body)
	s.recvWindow -= int32(len(body))

	if fh.Flags&FlagEndStream != 0 {
		s.state = StreamHalfClosedRemote
		c.dispatch(s)
	}
	return nil
}

// stripPadding removes the PADDED flag's pad-length byte and trailing
// padding from payload, if present. HEADERS/DATA frames with PRIORITY
// set additionally carry a 5-byte priority prefix that this
// conservative subset does not parse further (clients that send
// PRIORITY-flagged frames fall outside the supported subset).
func stripPadding(fh FrameHeader, payload []byte) []byte {
	const flagPadded = 0x8
	if fh.Flags&flagPadded == 0 || len(payload) == 0 {
		return payload
	}
	padLen := int(payload[0])
	if 1+padLen > len(payload) {
		return payload
	}
	return payload[1 : len(payload)-padLen]
}

func (c *connState) dispatch(s *stream) {
	s.state = StreamClosed
	delete(c.streams, s.id)

	status, headers, body := c.forward(s)
	c.writeResponse(s.id, status, headers, body)
}

func (c *connState) writeResponse(streamID uint32, status int, headers map[string]string, body []byte) {
	c.encMu.Lock()
	defer c.encMu.Unlock()

	c.encodeBuf.Reset()
	_ = c.encoder.WriteField(hpack.HeaderField{Name: ":status", Value: strconv.Itoa(status)})
	for k, v := range headers {
		_ = c.encoder.WriteField(hpack.HeaderField{Name: k, Value: v})
	}
	headerBlock := append([]byte(nil), c.encodeBuf.Bytes()...)

	endStream := uint8(0)
	if len(body) == 0 {
		endStream = FlagEndStream
	}
	_ = WriteFrame(c.conn, FrameHeaders, FlagEndHeaders|endStream, streamID, headerBlock)
	if len(body) > 0 {
		_ = WriteFrame(c.conn, FrameData, FlagEndStream, streamID, body)
	}
}
