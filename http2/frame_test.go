package http2_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/http2"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := http2.WriteFrame(&buf, http2.FrameHeaders, http2.FlagEndHeaders|http2.FlagEndStream, 1, []byte("payload"))
	require.NoError(t, err)

	fh, err := http2.ReadFrameHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, http2.FrameHeaders, fh.Type)
	require.Equal(t, http2.FlagEndHeaders|http2.FlagEndStream, fh.Flags)
	require.Equal(t, uint32(1), fh.StreamID)
	require.Equal(t, uint32(len("payload")), fh.Length)

	rest := make([]byte, fh.Length)
	_, err = buf.Read(rest)
	require.NoError(t, err)
	require.Equal(t, "payload", string(rest))
}

func TestFrameHeaderRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFF)
	buf.WriteByte(0xFF)
	buf.WriteByte(0xFF)
	buf.Write(make([]byte, 6))

	_, err := http2.ReadFrameHeader(&buf)
	require.Error(t, err)
}
