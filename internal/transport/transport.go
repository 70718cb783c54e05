//go:build linux

// Package transport owns the session's non-peer sockets: the TCP
// listener that accepts mesh connections, the best-effort UDP socket
// used for unguaranteed application sends and unicast enumeration
// replies, and the broadcast-receive discovery socket.
package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Config describes the local bind surface for one session instance.
type Config struct {
	BindAddr     string // host:port for the TCP listener and UDP socket
	DiscoveryPort int   // discovery-only broadcast-receive port
	BindDevice   string // optional SO_BINDTODEVICE interface name
}

// Sockets bundles the three sockets a Session owns directly.
type Sockets struct {
	Listener  net.Listener
	UDP       net.PacketConn
	Discovery net.PacketConn
}

// Open binds every socket described by cfg.
func Open(cfg Config) (Sockets, error) {
	var s Sockets

	l, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		return s, fmt.Errorf("listen tcp %s: %w", cfg.BindAddr, err)
	}
	s.Listener = l

	lc := net.ListenConfig{Control: func(_, _ string, c syscall.RawConn) error {
		return setReuseAddr(c, cfg.BindDevice)
	}}
	udp, err := lc.ListenPacket(context.Background(), "udp", cfg.BindAddr)
	if err != nil {
		l.Close()
		return s, fmt.Errorf("listen udp %s: %w", cfg.BindAddr, err)
	}
	s.UDP = udp

	discAddr := fmt.Sprintf(":%d", cfg.DiscoveryPort)
	dlc := net.ListenConfig{Control: func(_, _ string, c syscall.RawConn) error {
		return setBroadcastOpts(c, cfg.BindDevice)
	}}
	disc, err := dlc.ListenPacket(context.Background(), "udp4", discAddr)
	if err != nil {
		l.Close()
		udp.Close()
		return s, fmt.Errorf("listen discovery udp %s: %w", discAddr, err)
	}
	s.Discovery = disc

	return s, nil
}

// Close tears down every socket in s, returning the first error
// encountered.
func (s Sockets) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{s.Listener, s.UDP, s.Discovery} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DialTCP opens a TCP connection to addr, matching
// session.DialFunc's signature so it can be wired directly into
// session.Config.Dial.
func DialTCP(network, addr string) (net.Conn, error) {
	return net.Dial(network, addr)
}

func setReuseAddr(c syscall.RawConn, bindDevice string) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		//nolint:gosec // G115: fd is a kernel-assigned small positive integer.
		sockErr = applyReuseAddr(int(fd), bindDevice)
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return sockErr
}

func applyReuseAddr(fd int, bindDevice string) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if bindDevice != "" {
		if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, bindDevice); err != nil {
			return fmt.Errorf("set SO_BINDTODEVICE(%s): %w", bindDevice, err)
		}
	}
	return nil
}

// setBroadcastOpts enables receipt of broadcast HOST_ENUM_REQUEST
// datagrams on the discovery socket: SO_BROADCAST,
// SO_REUSEADDR, and optionally SO_BINDTODEVICE.
func setBroadcastOpts(c syscall.RawConn, bindDevice string) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		//nolint:gosec // G115: fd is a kernel-assigned small positive integer.
		sockErr = applyBroadcastOpts(int(fd), bindDevice)
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return sockErr
}

func applyBroadcastOpts(fd int, bindDevice string) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		return fmt.Errorf("set SO_BROADCAST: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if bindDevice != "" {
		if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, bindDevice); err != nil {
			return fmt.Errorf("set SO_BINDTODEVICE(%s): %w", bindDevice, err)
		}
	}
	return nil
}
