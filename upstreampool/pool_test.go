package upstreampool_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/edgeproxy/upstreampool"
)

func startEchoServer(t *testing.T) string {
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
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestPoolAcquireReleaseReusesConnection(t *testing.T) {
	addr := startEchoServer(t)
	p, err := upstreampool.New("tcp://"+addr, upstreampool.Options{MaxConns: 2})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	c1, err := p.Acquire(ctx)
	require.NoError(t, err)
	id1 := c1.ID()
	p.Release(c1)

	c2, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, id1, c2.ID(), "expected reuse of released connection")
	p.Release(c2)
}

func TestPoolCapBlocksUntilRelease(t *testing.T) {
	addr := startEchoServer(t)
	p, err := upstreampool.New("tcp://"+addr, upstreampool.Options{MaxConns: 1})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	c1, err := p.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		c2, err := p.Acquire(ctx)
		require.NoError(t, err)
		p.Release(c2)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should block while pool is at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(c1)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not unblock after release")
	}
}

func TestPoolPrewarm(t *testing.T) {
	addr := startEchoServer(t)
	p, err := upstreampool.New("tcp://"+addr, upstreampool.Options{MaxConns: 3})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Prewarm(context.Background(), 3))
	stats := p.Stats()
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 3, stats.Idle)
}

func TestPoolAcquireBlocksOnContextCancel(t *testing.T) {
	addr := startEchoServer(t)
	p, err := upstreampool.New("tcp://"+addr, upstreampool.Options{MaxConns: 1})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
