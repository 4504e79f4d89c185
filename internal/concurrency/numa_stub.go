//go:build !linux && !windows
// +build !linux,!windows

// File: internal/concurrency/numa_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms without a NUMA-aware implementation.

package concurrency

func platformNUMANodes() int                  { return 1 }
func platformPreferredCPUID(numaNode int) int { return 0 }
func platformCurrentNUMANodeID() int          { return -1 }
func platformPinCurrentThread(numaNode, cpuID int) {}
