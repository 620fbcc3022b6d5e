package adbus

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// Transport is the byte-stream a Conn authenticates and multiplexes
// messages over. Any net.Conn satisfies the parts of this interface used
// for reads and writes; Dial is the only piece transport-specific enough
// to need its own function per address family.
type Transport interface {
	net.Conn
}

// DialAddress connects to the first Address in addrs that succeeds,
// mirroring libdbus's fallback-through-the-list behavior for a
// semicolon-joined address string.
func DialAddress(addrs []Address) (Transport, error) {
	var lastErr error
	for _, a := range addrs {
		conn, err := dialOne(a)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("adbus: no addresses to dial")
	}
	return nil, lastErr
}

func dialOne(a Address) (Transport, error) {
	switch a.Transport {
	case "tcp":
		p, err := a.TCP()
		if err != nil {
			return nil, err
		}
		network := "tcp"
		if p.Family == "ipv4" {
			network = "tcp4"
		} else if p.Family == "ipv6" {
			network = "tcp6"
		}
		return net.Dial(network, net.JoinHostPort(p.Host, p.Port))
	case "unix":
		p, err := a.Unix()
		if err != nil {
			return nil, err
		}
		if p.Abstract != "" {
			return dialUnixAbstract(p.Abstract)
		}
		if p.Path != "" {
			return net.Dial("unix", p.Path)
		}
		return nil, fmt.Errorf("adbus: unix address has neither path nor abstract")
	default:
		return nil, fmt.Errorf("adbus: unsupported transport %q", a.Transport)
	}
}

// dialUnixAbstract connects to a Linux abstract-namespace unix socket,
// whose name is not a filesystem path: the kernel distinguishes it by a
// leading NUL byte in the sockaddr, which net.Dial's "unix" network
// cannot express, so this goes straight to golang.org/x/sys/unix the way
// a low-level transport on this platform has to.
func dialUnixAbstract(name string) (Transport, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("adbus: abstract unix sockets are Linux-only")
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("adbus: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: "@" + name}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("adbus: connect: %w", err)
	}
	f := os.NewFile(uintptr(fd), "abstract-unix")
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("adbus: FileConn: %w", err)
	}
	return conn.(Transport), nil
}
