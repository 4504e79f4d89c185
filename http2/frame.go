// File: http2/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Preface is the fixed connection preface every HTTP/2 connection
// opens with, per RFC 7540 §3.5. The detector has already peeked (not
// consumed) these bytes to classify the connection; Handler.Serve reads
// and verifies them itself before the SETTINGS handshake.
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Frame type codes for the conservative subset this package implements.
const (
	FrameData         uint8 = 0x0
	FrameHeaders      uint8 = 0x1
	FrameSettings     uint8 = 0x4
	FramePing         uint8 = 0x6
	FrameGoAway       uint8 = 0x7
	FrameWindowUpdate uint8 = 0x8
	FrameContinuation uint8 = 0x9
)

// Frame flags relevant to this subset.
const (
	FlagEndStream  uint8 = 0x1
	FlagEndHeaders uint8 = 0x4
	FlagAck        uint8 = 0x1 // shared bit position with SETTINGS/PING ACK
)

// DefaultInitialWindowSize is SETTINGS_INITIAL_WINDOW_SIZE's default
// per RFC 7540 §6.5.2, used unless a peer negotiates otherwise (this
// subset does not negotiate window sizes).
const DefaultInitialWindowSize = 65535

// MaxFrameSize bounds a single frame's payload length this
// implementation will read, guarding against a hostile peer.
const MaxFrameSize = 1 << 20

// FrameHeader is the fixed 9-byte header prefixing every HTTP/2 frame.
type FrameHeader struct {
	Length   uint32 // 24 bits on the wire
	Type     uint8
	Flags    uint8
	StreamID uint32 // 31 bits on the wire, reserved bit ignored
}

// ReadFrameHeader reads and decodes the next frame header from r.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var buf [9]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FrameHeader{}, err
	}
	length := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	if length > MaxFrameSize {
		return FrameHeader{}, fmt.Errorf("http2: frame length %d exceeds max %d", length, MaxFrameSize)
	}
	streamID := binary.BigEndian.Uint32(buf[5:9]) &^ (1 << 31)
	return FrameHeader{Length: length, Type: buf[3], Flags: buf[4], StreamID: streamID}, nil
}

// WriteFrameHeader encodes and writes fh to w.
func WriteFrameHeader(w io.Writer, fh FrameHeader) error {
	var buf [9]byte
	buf[0] = byte(fh.Length >> 16)
	buf[1] = byte(fh.Length >> 8)
	buf[2] = byte(fh.Length)
	buf[3] = fh.Type
	buf[4] = fh.Flags
	binary.BigEndian.PutUint32(buf[5:9], fh.StreamID)
	_, err := w.Write(buf[:])
	return err
}

// WriteFrame writes one complete frame (header + payload) to w.
func WriteFrame(w io.Writer, typ, flags uint8, streamID uint32, payload []byte) error {
	if err := WriteFrameHeader(w, FrameHeader{Length: uint32(len(payload)), Type: typ, Flags: flags, StreamID: streamID}); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
