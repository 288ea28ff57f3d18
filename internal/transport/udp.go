// Package transport creates the UDP sockets used by the responder and the
// requester and classifies the errors they return.
//
// Both sockets set SO_REUSEADDR so that a restarted responder can rebind its
// well-known port immediately.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Listen binds an unconnected UDP socket to address (host:port).
func Listen(ctx context.Context, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseAddr}

	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, err
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}

	return conn, nil
}

// Dial creates a UDP socket connected to address. The peer is fixed for the
// socket's lifetime and datagrams from any other source are discarded by the
// kernel.
func Dial(ctx context.Context, address string) (*net.UDPConn, error) {
	d := net.Dialer{Control: reuseAddr}

	c, err := d.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, err
	}

	conn, ok := c.(*net.UDPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("unexpected conn type %T", c)
	}

	return conn, nil
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClosed reports whether err came from using a closed socket.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// IsConnRefused reports whether err is the OS surfacing an ICMP
// port-unreachable for an earlier datagram on a connected socket.
func IsConnRefused(err error) bool {
	return isConnRefused(err)
}
