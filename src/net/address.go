package net

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when an address has no port.
const DefaultPort = 8080

// ParseAddress returns addr with DefaultPort appended if it has no port.
// Bracketed and bare IPv6 hosts are accepted.
func ParseAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")

	return net.JoinHostPort(host, itoa(DefaultPort))
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
