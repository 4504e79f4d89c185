// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency provides NUMA topology queries, CPU thread pinning,
// and the lock-free per-worker queue used by the acceptor and worker pool
// to dispatch accepted connections without cross-worker contention.
package concurrency
