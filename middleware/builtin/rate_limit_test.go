package builtin_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/middleware/builtin"
)

func ctxFrom(method, path string) *middleware.Context {
	return middleware.NewContext(method, path, nil, &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1234}, nil, "http://origin")
}

func TestRateLimitThirdRequestDenied(t *testing.T) {
	rl := builtin.NewRateLimit("rl", config.RateLimitConfig{RequestsPerMinute: 2})

	r1 := rl.Process(ctxFrom("GET", "/x"))
	r2 := rl.Process(ctxFrom("GET", "/x"))
	r3 := rl.Process(ctxFrom("GET", "/x"))

	require.True(t, r1.Success)
	require.True(t, r2.Success)
	require.False(t, r3.Success)
	require.Equal(t, 429, r3.StatusCode)
	require.Equal(t, "Rate limit exceeded", r3.ErrorMessage)
}

func TestRateLimitTracksDistinctClientsSeparately(t *testing.T) {
	rl := builtin.NewRateLimit("rl", config.RateLimitConfig{RequestsPerMinute: 1})

	ctxA := middleware.NewContext("GET", "/x", nil, &net.TCPAddr{IP: net.ParseIP("10.0.0.1")}, nil, "")
	ctxB := middleware.NewContext("GET", "/x", nil, &net.TCPAddr{IP: net.ParseIP("10.0.0.2")}, nil, "")

	require.True(t, rl.Process(ctxA).Success)
	require.True(t, rl.Process(ctxB).Success)
	require.Equal(t, 2, rl.TrackedClients())
}
