// File: acceptor/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Acceptor runs one accept loop per listening socket. Each loop is pinned
// to a CPU on a distinct NUMA node when the platform exposes topology;
// every accepted connection is submitted to the worker pool carrying that
// node as a hint so downstream buffer allocation stays node-local.

package acceptor

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/momentics/edgeproxy/affinity"
	"github.com/momentics/edgeproxy/internal/concurrency"
	"github.com/momentics/edgeproxy/workerpool"
)

// maxListeners bounds the number of parallel listening sockets regardless
// of CPU count, per spec: min(8, N).
const maxListeners = 8

// Config configures the acceptor's listening sockets.
type Config struct {
	Addr    string
	Backlog int
	// Listeners overrides the computed listener count for tests; 0 means
	// "one per NUMA node, capped at 8".
	Listeners int
}

// Acceptor owns a set of listening sockets and their accept loops.
type Acceptor struct {
	cfg       Config
	pool      *workerpool.Pool
	listeners []net.Listener
	numaNode  []int
	closing   atomic.Bool
	wg        sync.WaitGroup
}

// New binds cfg.Listeners (or a NUMA-node-count default) listening sockets on
// cfg.Addr, each assigned a NUMA node round-robin across the topology.
func New(cfg Config, pool *workerpool.Pool) (*Acceptor, error) {
	n := cfg.Listeners
	if n <= 0 {
		n = concurrency.NUMANodes()
		if n < 1 {
			n = 1
		}
		if n > maxListeners {
			n = maxListeners
		}
	}
	if !reusePortSupported && n > 1 {
		n = 1
	}

	a := &Acceptor{cfg: cfg, pool: pool}
	numaNodes := concurrency.NUMANodes()
	for i := 0; i < n; i++ {
		ln, err := newReusePortListener(cfg.Addr, cfg.Backlog)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("acceptor: listener %d: %w", i, err)
		}
		a.listeners = append(a.listeners, ln)
		node := -1
		if numaNodes > 0 {
			node = i % numaNodes
		}
		a.numaNode = append(a.numaNode, node)
	}
	return a, nil
}

// Start launches one accept loop goroutine per listener. It returns
// immediately; loops run until Shutdown closes their listener.
func (a *Acceptor) Start() {
	for i, ln := range a.listeners {
		a.wg.Add(1)
		go a.acceptLoop(ln, a.numaNode[i])
	}
}

func (a *Acceptor) acceptLoop(ln net.Listener, numaNode int) {
	defer a.wg.Done()

	if numaNode >= 0 {
		cpuID := concurrency.PreferredCPUID(numaNode)
		_ = affinity.SetAffinity(cpuID)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if a.closing.Load() {
				return
			}
			if isBenignAcceptError(err) {
				continue
			}
			return
		}
		if err := a.pool.Submit(conn, numaNode); err != nil {
			conn.Close()
		}
	}
}

// isBenignAcceptError reports whether err is a transient accept failure
// that should not stop the accept loop.
func isBenignAcceptError(err error) bool {
	if errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Shutdown sets the shutdown flag, closes every listener to unblock
// accept, and waits for every accept loop goroutine to return.
func (a *Acceptor) Shutdown() {
	if !a.closing.CompareAndSwap(false, true) {
		return
	}
	a.closeAll()
	a.wg.Wait()
}

func (a *Acceptor) closeAll() {
	for _, ln := range a.listeners {
		ln.Close()
	}
}

// NumListeners reports how many listening sockets are active.
func (a *Acceptor) NumListeners() int {
	return len(a.listeners)
}

// Addrs returns the bound address of every listening socket, in the
// order they were created. Useful for logging the actual port when
// Config.Addr requested an ephemeral one (":0").
func (a *Acceptor) Addrs() []net.Addr {
	addrs := make([]net.Addr, len(a.listeners))
	for i, ln := range a.listeners {
		addrs[i] = ln.Addr()
	}
	return addrs
}
