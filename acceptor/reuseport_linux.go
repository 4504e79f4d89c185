//go:build linux
// +build linux

// File: acceptor/reuseport_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SO_REUSEPORT listener construction. Grounded on the raw-socket setup the
// teacher uses for its data-plane connections (unix.Socket, SetsockoptInt
// for TCP_NODELAY) extended with SO_REUSEPORT, an option the teacher never
// needed since it owns a single listener per process.

package acceptor

import (
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const reusePortSupported = true

func newReusePortListener(addr string, backlog int) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("acceptor: resolve %q: %w", addr, err)
	}

	domain := unix.AF_INET
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	} else if ip6 := tcpAddr.IP.To16(); ip6 != nil {
		domain = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], ip6)
		return bindListen(domain, sa6, backlog, addr)
	} else {
		// Unspecified address: bind to all interfaces, IPv4.
	}
	return bindListen(domain, sa, backlog, addr)
}

func bindListen(domain int, sa unix.Sockaddr, backlog int, addr string) (net.Listener, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("acceptor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("acceptor: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("acceptor: SO_REUSEPORT: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("acceptor: TCP_NODELAY: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("acceptor: bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = 1024
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("acceptor: listen %s: %w", addr, err)
	}

	syscall.CloseOnExec(fd)
	f := os.NewFile(uintptr(fd), fmt.Sprintf("reuseport-%s", addr))
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("acceptor: FileListener: %w", err)
	}
	return ln, nil
}
