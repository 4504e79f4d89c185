// File: upstreampool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded per-origin connection pool (C2): idle eviction with a min-idle
// floor, pre-warming, and a counting semaphore that blocks Acquire once
// the cap is reached. Grounded on the teacher's channel-as-semaphore
// style in its executor (a buffered channel of permits rather than a
// separate semaphore package) and pool.ObjectPool's mutex + generational
// reuse shape, generalized from byte buffers to live net.Conn origins.

package upstreampool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/edgeproxy/api"
)

// Conn is one pooled connection to an upstream origin.
type Conn struct {
	net.Conn
	id       uint64
	pool     *Pool
	inUse    bool
	lastUsed time.Time
}

// ID returns the pool-assigned monotonic connection id.
func (c *Conn) ID() uint64 { return c.id }

// Release returns the connection to the pool it was acquired from. It is
// equivalent to calling Pool.Release(c).
func (c *Conn) Release() {
	c.pool.Release(c)
}

// Pool is a bounded, idle-evicting connection pool for one upstream origin.
type Pool struct {
	origin      *url.URL
	maxConns    int
	idleTimeout time.Duration
	minIdle     int
	dialTimeout time.Duration

	mu    sync.Mutex
	conns []*Conn
	sem   chan struct{}

	nextID atomic.Uint64
	closed atomic.Bool
}

// Options configures a Pool at construction.
type Options struct {
	MaxConns    int
	IdleTimeout time.Duration
	MinIdle     int
	DialTimeout time.Duration
}

// New creates a Pool bound to originURL. The semaphore starts fully
// loaded with MaxConns permits, per spec's "at most one acquirer
// unblocked per release" invariant.
func New(originURL string, opts Options) (*Pool, error) {
	u, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("upstreampool: parse origin %q: %v: %w", originURL, err, api.ErrInvalidArgument)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 1
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	p := &Pool{
		origin:      u,
		maxConns:    opts.MaxConns,
		idleTimeout: opts.IdleTimeout,
		minIdle:     opts.MinIdle,
		dialTimeout: opts.DialTimeout,
		sem:         make(chan struct{}, opts.MaxConns),
	}
	for i := 0; i < opts.MaxConns; i++ {
		p.sem <- struct{}{}
	}
	return p, nil
}

// Acquire returns an idle connection for the origin, creating one under
// the cap if none is idle, otherwise blocking on the semaphore until one
// is released or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	select {
	case <-p.sem:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("upstreampool: acquire timed out waiting for origin %s: %w: %w", p.origin.Host, api.ErrResourceExhausted, ctx.Err())
		}
		return nil, ctx.Err()
	}

	p.mu.Lock()
	p.evictIdleLocked()
	for _, c := range p.conns {
		if !c.inUse {
			c.inUse = true
			p.mu.Unlock()
			return c, nil
		}
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		p.sem <- struct{}{}
		return nil, err
	}
	p.mu.Lock()
	p.conns = append(p.conns, c)
	p.mu.Unlock()
	return c, nil
}

// Release marks conn idle and posts one permit, unblocking at most one
// waiting Acquire.
func (p *Pool) Release(conn *Conn) {
	p.mu.Lock()
	conn.inUse = false
	conn.lastUsed = time.Now()
	p.mu.Unlock()
	p.sem <- struct{}{}
}

// Prewarm eagerly creates up to n connections then releases them back to
// the pool, so the first real requests find a warm connection.
func (p *Pool) Prewarm(ctx context.Context, n int) error {
	if n > p.maxConns {
		n = p.maxConns
	}
	held := make([]*Conn, 0, n)
	defer func() {
		for _, c := range held {
			p.Release(c)
		}
	}()
	for i := 0; i < n; i++ {
		c, err := p.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("upstreampool: prewarm: %w", err)
		}
		held = append(held, c)
	}
	return nil
}

// dial opens a fresh TCP connection to the origin with TCP_NODELAY and
// keep-alive enabled, per spec.
func (p *Pool) dial(ctx context.Context) (*Conn, error) {
	dialer := &net.Dialer{Timeout: p.dialTimeout, KeepAlive: 30 * time.Second}
	host := p.origin.Host
	nc, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		code := api.ErrCodeInternal
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			code = api.ErrCodeTimeout
		}
		return nil, api.NewError(code, fmt.Sprintf("upstreampool: dial %s failed", host)).
			WithContext("origin", host).
			WithContext("cause", err.Error())
	}
	if tcpConn, ok := nc.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
	}
	return &Conn{
		Conn:     nc,
		id:       p.nextID.Add(1),
		pool:     p,
		inUse:    true,
		lastUsed: time.Now(),
	}, nil
}

// evictIdleLocked closes and drops idle connections beyond the min-idle
// floor whose idle time exceeds idleTimeout. Must be called with p.mu held.
func (p *Pool) evictIdleLocked() {
	if p.idleTimeout <= 0 {
		return
	}
	idleCount := 0
	for _, c := range p.conns {
		if !c.inUse {
			idleCount++
		}
	}
	if idleCount <= p.minIdle {
		return
	}

	now := time.Now()
	kept := p.conns[:0]
	evictable := idleCount - p.minIdle
	for _, c := range p.conns {
		if c.inUse || evictable <= 0 || now.Sub(c.lastUsed) <= p.idleTimeout {
			kept = append(kept, c)
			continue
		}
		c.Conn.Close()
		evictable--
	}
	p.conns = kept
}

// Close closes every pooled connection and marks the pool closed; further
// Acquire calls return ErrPoolClosed.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Conn.Close()
	}
	p.conns = nil
	return nil
}

// Stats reports a point-in-time snapshot of pool occupancy.
type Stats struct {
	Total int
	InUse int
	Idle  int
}

// Stats returns current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Total: len(p.conns)}
	for _, c := range p.conns {
		if c.inUse {
			s.InUse++
		} else {
			s.Idle++
		}
	}
	return s
}
