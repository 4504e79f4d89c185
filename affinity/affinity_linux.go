//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.
// Uses sched_setaffinity via golang.org/x/sys/unix instead of cgo so the
// acceptor and worker pool can pin goroutines without a C toolchain.

package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
// Locks the calling goroutine to its current OS thread first: affinity
// only makes sense pinned to one thread, and Go may otherwise migrate
// the goroutine before the syscall takes effect.
func setAffinityPlatform(cpuID int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity failed: %w", err)
	}
	return nil
}
