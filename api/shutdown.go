// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is a shutdown contract for stoppable components. The
// acceptor, worker pool and upstream pool manager in this tree do not
// implement it: their Shutdown/CloseAll methods return no error, and the
// orchestrator calls them directly.
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources. Idempotent.
	Shutdown() error
}
