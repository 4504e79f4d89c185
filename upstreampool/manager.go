// File: upstreampool/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Manager hands out one Pool per upstream origin, creating it lazily.
// Routes reference upstreams by URL; the server orchestrator (C11) builds
// one Manager and shares it with the protocol handlers, which look up the
// right Pool for a matched route through here rather than each tracking
// its own pool map.

package upstreampool

import (
	"fmt"
	"sync"
)

// Manager owns one Pool per distinct origin URL.
type Manager struct {
	opts Options

	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager creates a Manager that builds pools with opts.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, pools: make(map[string]*Pool)}
}

// Get returns the Pool for originURL, creating it on first use.
func (m *Manager) Get(originURL string) (*Pool, error) {
	m.mu.RLock()
	p, ok := m.pools[originURL]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[originURL]; ok {
		return p, nil
	}
	p, err := New(originURL, m.opts)
	if err != nil {
		return nil, fmt.Errorf("upstreampool: manager: %w", err)
	}
	m.pools[originURL] = p
	return p, nil
}

// CloseAll closes every pool the manager has created.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pools {
		p.Close()
	}
}
