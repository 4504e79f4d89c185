//go:build windows
// +build windows

// File: internal/concurrency/numa_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows has no cheap userspace NUMA query without extra syscalls this
// project does not otherwise need; report a single node and delegate
// thread pinning to affinity.SetAffinity (SetThreadAffinityMask).

package concurrency

import "github.com/momentics/edgeproxy/affinity"

func platformNUMANodes() int               { return 1 }
func platformPreferredCPUID(numaNode int) int { return 0 }
func platformCurrentNUMANodeID() int       { return -1 }

func platformPinCurrentThread(numaNode, cpuID int) {
	_ = affinity.SetAffinity(cpuID)
}
