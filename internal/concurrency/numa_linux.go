//go:build linux
// +build linux

// File: internal/concurrency/numa_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux NUMA topology via /sys/devices/system/node and sched_getcpu,
// avoiding libnuma/cgo per the project's no-cgo build policy (see
// affinity/affinity_linux.go for the matching rationale).

package concurrency

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/momentics/edgeproxy/affinity"
)

func platformNUMANodes() int {
	entries, err := os.ReadDir("/sys/devices/system/node")
	if err != nil {
		return 1
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "node") {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

func platformPreferredCPUID(numaNode int) int {
	if numaNode < 0 {
		return 0
	}
	cpulist, err := os.ReadFile(filepath.Join("/sys/devices/system/node",
		"node"+itoa(numaNode), "cpulist"))
	if err != nil {
		return 0
	}
	first := strings.SplitN(strings.TrimSpace(string(cpulist)), ",", 2)[0]
	first = strings.SplitN(first, "-", 2)[0]
	n := atoiOrZero(first)
	return n
}

func platformCurrentNUMANodeID() int {
	cpu, err := unix.SchedGetcpu()
	if err != nil {
		return -1
	}
	node, err := nodeOfCPU(cpu)
	if err != nil {
		return -1
	}
	return node
}

func platformPinCurrentThread(numaNode, cpuID int) {
	_ = affinity.SetAffinity(cpuID)
}

// nodeOfCPU walks /sys/devices/system/node/nodeN/cpulist to find which node
// owns cpu. Returns an error when the node directory cannot be read, and
// node 0 when no node's cpulist contains cpu.
func nodeOfCPU(cpu int) (int, error) {
	entries, err := os.ReadDir("/sys/devices/system/node")
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "node") {
			continue
		}
		nodeID := atoiOrZero(strings.TrimPrefix(e.Name(), "node"))
		data, err := os.ReadFile(filepath.Join("/sys/devices/system/node", e.Name(), "cpulist"))
		if err != nil {
			continue
		}
		if cpulistContains(strings.TrimSpace(string(data)), cpu) {
			return nodeID, nil
		}
	}
	return 0, nil
}

func cpulistContains(list string, cpu int) bool {
	for _, rng := range strings.Split(list, ",") {
		rng = strings.TrimSpace(rng)
		if rng == "" {
			continue
		}
		parts := strings.SplitN(rng, "-", 2)
		lo := atoiOrZero(parts[0])
		hi := lo
		if len(parts) == 2 {
			hi = atoiOrZero(parts[1])
		}
		if cpu >= lo && cpu <= hi {
			return true
		}
	}
	return false
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
