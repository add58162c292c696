package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	rlerr "opusrelay/internal/errors"
)

// ResolveAddr builds the producer's host:port.  With noDNS set the host
// must already be a numeric IP.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS && net.ParseIP(host) == nil {
		return "", &rlerr.ConfigError{
			Field:   "no-dns",
			Value:   host,
			Message: "host is not a numeric IP address",
			Hint:    "drop -n or pass an IP",
		}
	}
	return FormatAddr(host, port), nil
}

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// IsLoopback reports whether host names the local machine only: a
// loopback IP or "localhost".
func IsLoopback(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// FindFreePort returns a TCP port on 127.0.0.1 that was free a moment
// ago.  Tests use it to pick a relay port before binding it.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
