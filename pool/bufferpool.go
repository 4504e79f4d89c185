// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// NUMA-segmented BufferPool manager. Buffers are grouped by size class and
// NUMA node so repeated acquisitions on one worker tend to reuse memory
// already resident on that worker's node, without requiring a NUMA-aware
// allocator (libnuma) — just node-keyed sync.Pool instances.

package pool

import (
	"sync"

	"github.com/momentics/edgeproxy/api"
)

// sizeClass buckets buffer sizes into a small number of pools so a 4KiB
// request doesn't share a pool with a 64KiB one.
func sizeClass(n int) int {
	c := 256
	for c < n {
		c <<= 1
	}
	return c
}

// nodePool pools buffers of a single size class for a single NUMA node.
type nodePool struct {
	pool  sync.Pool
	class int
}

func newNodePool(class int) *nodePool {
	np := &nodePool{class: class}
	np.pool.New = func() any {
		return make([]byte, class)
	}
	return np
}

// BufferPool is a NUMA-segmented, size-classed implementation of
// api.BufferPool.
type BufferPool struct {
	node  int
	mu    sync.Mutex
	pools map[int]*nodePool // size class -> pool

	mu2        sync.Mutex
	totalAlloc int64
	totalFree  int64
	inUse      int64
}

// NewBufferPool creates a BufferPool bound to the given NUMA node (-1 for
// "no preference").
func NewBufferPool(numaNode int) *BufferPool {
	return &BufferPool{node: numaNode, pools: make(map[int]*nodePool)}
}

func (p *BufferPool) classPool(class int) *nodePool {
	p.mu.Lock()
	defer p.mu.Unlock()
	np, ok := p.pools[class]
	if !ok {
		np = newNodePool(class)
		p.pools[class] = np
	}
	return np
}

// Get returns a buffer of at least size bytes. numaPreferred is accepted
// for api.BufferPool compatibility but this pool already belongs to one
// node; callers select the right per-node pool via BufferPoolManager.GetPool.
func (p *BufferPool) Get(size int, numaPreferred int) api.Buffer {
	class := sizeClass(size)
	np := p.classPool(class)
	buf := np.pool.Get().([]byte)
	if cap(buf) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	p.mu2.Lock()
	p.totalAlloc++
	p.inUse++
	p.mu2.Unlock()
	return api.Buffer{Data: buf, NUMA: p.node, Pool: p, Class: class}
}

// Put implements api.Releaser.
func (p *BufferPool) Put(b api.Buffer) {
	if b.Data == nil {
		return
	}
	class := b.Class
	if class == 0 {
		class = sizeClass(cap(b.Data))
	}
	np := p.classPool(class)
	np.pool.Put(b.Data[:cap(b.Data)])
	p.mu2.Lock()
	p.totalFree++
	if p.inUse > 0 {
		p.inUse--
	}
	p.mu2.Unlock()
}

// Stats reports a snapshot of pool usage for the control/metrics layer.
func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu2.Lock()
	defer p.mu2.Unlock()
	return api.BufferPoolStats{
		TotalAlloc: p.totalAlloc,
		TotalFree:  p.totalFree,
		InUse:      p.inUse,
		NUMAStats:  map[int]int64{p.node: p.inUse},
	}
}

var _ api.BufferPool = (*BufferPool)(nil)

// BufferPoolManager hands out one BufferPool per NUMA node, creating it
// lazily on first use.
type BufferPoolManager struct {
	mu    sync.RWMutex
	pools map[int]api.BufferPool
}

// NewBufferPoolManager creates an empty manager.
func NewBufferPoolManager() *BufferPoolManager {
	return &BufferPoolManager{pools: make(map[int]api.BufferPool)}
}

// GetPool obtains or creates a NUMA-specific BufferPool. node -1 means "no
// NUMA preference" and maps to a single shared pool.
func (m *BufferPoolManager) GetPool(node int) api.BufferPool {
	m.mu.RLock()
	p, ok := m.pools[node]
	m.mu.RUnlock()
	if ok {
		return p
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[node]; ok {
		return p
	}
	p = NewBufferPool(node)
	m.pools[node] = p
	return p
}

var (
	defaultOnce sync.Once
	defaultMgr  *BufferPoolManager
)

// DefaultManager returns a process-wide BufferPoolManager so unrelated
// components (HTTP/1.1 body buffering, WebSocket frame payloads) share
// pools instead of fragmenting allocations across the process.
func DefaultManager() *BufferPoolManager {
	defaultOnce.Do(func() {
		defaultMgr = NewBufferPoolManager()
	})
	return defaultMgr
}
