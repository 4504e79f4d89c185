// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, one-shot configuration snapshot, and debug introspection
// for the proxy core.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable config snapshot reads, set once at startup
//   - Metrics telemetry registry
//   - Named debug probe registration and dump
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
