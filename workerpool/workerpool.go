// File: workerpool/workerpool.go
// Package workerpool implements the fixed-size, CPU-affined connection
// dispatcher (C10): the acceptor submits one job per accepted connection,
// thread_count workers each drain their own queue, and a connection never
// migrates to a different worker once it starts running.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package workerpool

import (
	"fmt"
	"net"

	"github.com/momentics/edgeproxy/internal/concurrency"
)

// Handler processes one accepted connection. numaHint is the NUMA node
// the acceptor that produced conn is pinned to, -1 if unknown; a handler
// that needs a NUMA-local buffer should request one from that node.
type Handler func(conn net.Conn, numaHint int)

// Pool is a fixed-size set of worker goroutines fed by internal/concurrency's
// lock-free per-worker queues, one submission per accepted connection.
type Pool struct {
	exec    *concurrency.Executor
	handler Handler
}

// New creates a Pool with threadCount workers pinned to numaNode (-1 for
// no NUMA preference) and dispatching every submitted connection to handler.
func New(threadCount, numaNode int, handler Handler) *Pool {
	return &Pool{
		exec:    concurrency.NewExecutor(threadCount, numaNode),
		handler: handler,
	}
}

// Submit enqueues conn for processing by the next available worker. It
// never blocks the caller on a full queue: the underlying executor falls
// back to its bounded global queue, and refuses work after Shutdown or
// when that global queue is full too.
func (p *Pool) Submit(conn net.Conn, numaHint int) error {
	err := p.exec.Submit(func() {
		p.handler(conn, numaHint)
	})
	if err != nil {
		return fmt.Errorf("workerpool: submit: %w", err)
	}
	return nil
}

// NumWorkers reports the configured worker count.
func (p *Pool) NumWorkers() int {
	return p.exec.NumWorkers()
}

// Shutdown stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Shutdown() {
	p.exec.Close()
}
