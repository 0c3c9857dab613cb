package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"syscall"
)

// Listen binds host:port. While the port is already in use it tries the
// next one, giving up after attempts tries.
func Listen(host string, port, attempts int) (net.Listener, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; ; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || i+1 >= attempts {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Warn("port in use, trying next", "port", port+i, "next", port+i+1)
	}
}

// LocalIP returns the address of the interface used for outbound traffic,
// or 127.0.0.1 when there is none. No packets are sent.
func LocalIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
