//go:build !linux
// +build !linux

// File: acceptor/reuseport_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SO_REUSEPORT has no portable equivalent outside Linux; platforms that
// land here get a single listener instead of min(8, N).

package acceptor

import "net"

const reusePortSupported = false

func newReusePortListener(addr string, backlog int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
