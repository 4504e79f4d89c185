// File: adapters/control_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control adapter implementing api.Control using the control package's
// config/metrics/debug primitives.

package adapters

import (
	"github.com/momentics/edgeproxy/api"
	"github.com/momentics/edgeproxy/control"
)

// ControlAdapter bridges api.Control to the control package's primitives.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// NewControlAdapter constructs a ControlAdapter with platform debug probes
// registered.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

// SetConfig applies the materialized configuration snapshot. Called once
// by the server orchestrator during startup, before the adapter is handed
// out as an api.Control.
func (c *ControlAdapter) SetConfig(cfg map[string]any) {
	c.config.SetConfig(cfg)
}

// Metrics exposes the underlying registry so request-path code can record
// counters without going through the api.Control read-only surface.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry {
	return c.metrics
}

// GetConfig returns a snapshot of the current configuration.
func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// Stats returns merged metrics and debug probe data.
func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	for k, v := range c.metrics.GetSnapshot() {
		combined["metrics."+k] = v
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// RegisterDebugProbe registers a named debug probe function.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

var _ api.Control = (*ControlAdapter)(nil)
