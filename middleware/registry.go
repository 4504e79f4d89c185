// File: middleware/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry replaces the teacher's package-level handler maps
// (highlevel.Server.handlers/patterns) with a single frozen instance
// owned by the server orchestrator (C11), built once at startup and
// never mutated after the first connection is accepted — the "builder
// owned by the server orchestrator" re-architecture of the source's
// global mutable registry.

package middleware

import (
	"fmt"

	"github.com/momentics/edgeproxy/config"
)

// Factory builds one Middleware instance from its configured variant.
// Exactly one of cfg's pointer fields is populated, matching cfg.Type.
type Factory func(cfg config.MiddlewareConfig) (Middleware, error)

// Registry maps a type tag to the factory that constructs it. It is
// built once via NewRegistry (empty; builtin.RegisterAll adds the
// built-ins) and additional host tags can be added with Register before Build is
// called; after Build, the registry that matters is the resulting
// Chain, not this Registry.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry. Callers typically use
// builtin.RegisterAll(reg) to populate the six recognized tags before
// registering any custom ones.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for tag. Registering after the
// registry has been used to Build a chain has no effect on chains
// already built (the chain holds constructed instances, not the
// registry).
func (r *Registry) Register(tag string, f Factory) {
	r.factories[tag] = f
}

// Build constructs one Middleware per entry in descriptors, in order,
// using each descriptor's Type to look up its factory. An unrecognized
// tag is a configuration error, per spec's "unknown tags are a
// configuration error."
func (r *Registry) Build(descriptors []config.MiddlewareConfig) (*Chain, error) {
	instances := make([]Middleware, 0, len(descriptors))
	for _, d := range descriptors {
		f, ok := r.factories[d.Type]
		if !ok {
			return nil, fmt.Errorf("middleware: unknown type tag %q", d.Type)
		}
		inst, err := f(d)
		if err != nil {
			return nil, fmt.Errorf("middleware: build %q (%s): %w", d.Name, d.Type, err)
		}
		instances = append(instances, inst)
	}
	return &Chain{middlewares: instances}, nil
}

// BuildNamed builds a Chain containing only the descriptors whose Name
// is listed in names, preserving the order they appear in names. This
// is how a route's middleware list (route.Middlewares []string)
// resolves to a per-route Chain from the server-wide descriptor set.
func (r *Registry) BuildNamed(descriptors []config.MiddlewareConfig, names []string) (*Chain, error) {
	byName := make(map[string]config.MiddlewareConfig, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	selected := make([]config.MiddlewareConfig, 0, len(names))
	for _, n := range names {
		d, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("middleware: route references unknown middleware %q", n)
		}
		selected = append(selected, d)
	}
	return r.Build(selected)
}
