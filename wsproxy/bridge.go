// File: wsproxy/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// bridge relays decoded WebSocket frames between a client and an
// upstream connection, re-masking at each hop: frames leaving toward
// the client are always unmasked, frames leaving toward the upstream
// are always masked with a fresh key, regardless of how the peer that
// produced them happened to mask (or not mask) the original.

package wsproxy

import (
	"bufio"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/momentics/edgeproxy/protocol"
)

// bridge runs both relay directions and blocks until either side closes
// or errors, then tears down both connections.
func bridge(client net.Conn, clientBR *bufio.Reader, upstream net.Conn, upstreamBR *bufio.Reader, log *zap.Logger) {
	done := make(chan struct{}, 2)

	go func() {
		relay(clientBR, upstream, true, log)
		done <- struct{}{}
	}()
	go func() {
		relay(upstreamBR, client, false, log)
		done <- struct{}{}
	}()

	<-done
	client.Close()
	upstream.Close()
	<-done
}

// relay decodes frames from src until a close frame, EOF, or decode
// error, re-encoding each one onto dst with maskOut controlling whether
// the re-encoded frame carries the mask flag (and a fresh key).
func relay(src io.Reader, dst io.Writer, maskOut bool, log *zap.Logger) {
	var buf []byte
	for {
		frame, err := protocol.DecodeFrame(src)
		if err != nil {
			if err != io.EOF {
				log.Debug("wsproxy: frame decode stopped", zap.Error(err))
			}
			return
		}

		encoded, err := protocol.EncodeFrame(buf[:0], frame.Opcode, frame.Payload, maskOut)
		if err != nil {
			log.Warn("wsproxy: frame encode failed", zap.Error(err))
			return
		}
		buf = encoded

		if _, err := dst.Write(encoded); err != nil {
			return
		}
		if frame.Opcode == protocol.OpcodeClose {
			return
		}
	}
}
