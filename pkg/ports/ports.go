// Package ports opens a TCP listener near a preferred port.
package ports

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
)

const (
	maxAttempts = 50
	searchRange = 1000
)

// Listen listens on addr. When its port is taken it tries random ports in
// [port, port+1000] on the same host. Port 0 is passed through unchanged.
func Listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err == nil {
		return l, nil
	}

	host, portText, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		return nil, err
	}
	port, convErr := strconv.Atoi(portText)
	if convErr != nil || port == 0 {
		return nil, err
	}

	maxPort := port + searchRange
	if maxPort > 65535 {
		maxPort = 65535
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := port + rand.Intn(maxPort-port+1)
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(candidate)))
		if err == nil {
			return l, nil
		}
	}
	return nil, fmt.Errorf("no free port after %d attempts in range %d-%d: %w", maxAttempts, port, maxPort, err)
}

// Port returns the TCP port l is bound to.
func Port(l net.Listener) int {
	if a, ok := l.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}
