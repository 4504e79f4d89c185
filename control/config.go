// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration snapshot store. Configuration is applied once
// at startup by the server orchestrator (C11) and read thereafter by
// Control.GetConfig; there is no reload path.

package control

import (
	"sync"
)

// ConfigStore holds a read-mostly key/value configuration snapshot.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
}

// NewConfigStore initializes a new, empty config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges newCfg into the store. Called once during startup.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
}
