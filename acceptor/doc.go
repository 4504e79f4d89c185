// File: acceptor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package acceptor implements C9: up to min(8, N) listening sockets bound
// to the same address via SO_REUSEPORT, one accept loop per listener,
// each pinned to a CPU on a distinct NUMA node when topology permits. On
// accept, the connection is submitted to a workerpool.Pool carrying the
// acceptor's NUMA node as a hint.
package acceptor
