package net

import (
	"errors"
	"net"
)

var errNotTCP = errors.New("local address is not a TCP address")

// StreamLayer is the listening side of a transport.
type StreamLayer interface {
	net.Listener

	// AdvertiseAddr returns an address that peers can dial
	AdvertiseAddr() string
}

// TCPStreamLayer implements StreamLayer interface for plain TCP.
type TCPStreamLayer struct {
	listener *net.TCPListener
}

// NewTCPStreamLayer binds a TCP listener. A missing port defaults to
// DefaultPort.
func NewTCPStreamLayer(bindAddr string) (*TCPStreamLayer, error) {
	list, err := net.Listen("tcp", ParseAddress(bindAddr))
	if err != nil {
		return nil, err
	}

	tcpList, ok := list.(*net.TCPListener)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}

	return &TCPStreamLayer{listener: tcpList}, nil
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (c net.Conn, err error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() (err error) {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the StreamLayer interface. A listener bound to an
// unspecified address is advertised on the loopback interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	addr := t.listener.Addr().(*net.TCPAddr)
	if addr.IP.IsUnspecified() {
		return net.JoinHostPort("127.0.0.1", itoa(addr.Port))
	}
	return addr.String()
}
