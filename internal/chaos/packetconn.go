package chaos

import (
	"net"
	"time"
)

// PacketConn wraps a net.PacketConn and applies injected faults to
// outgoing datagrams. Reads are passed through unchanged.
type PacketConn struct {
	net.PacketConn
	injector *FaultInjector

	// OnFault, if set, is called after a fault has been applied.
	OnFault func(FaultType, net.Addr)
}

// WrapPacketConn returns conn with faults from injector applied to WriteTo.
func WrapPacketConn(conn net.PacketConn, injector *FaultInjector) *PacketConn {
	return &PacketConn{PacketConn: conn, injector: injector}
}

// WriteTo sends p to addr unless a fault intervenes. A dropped datagram
// reports success so callers cannot tell it apart from a loss on the wire.
func (c *PacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	fault, delay := c.injector.MaybeInject()

	switch fault {
	case FaultDrop:
		c.notify(fault, addr)
		return len(p), nil

	case FaultDuplicate:
		n, err := c.PacketConn.WriteTo(p, addr)
		if err != nil {
			return n, err
		}
		c.notify(fault, addr)
		return c.PacketConn.WriteTo(p, addr)

	case FaultDelay:
		time.Sleep(delay)
		c.notify(fault, addr)
	}

	return c.PacketConn.WriteTo(p, addr)
}

func (c *PacketConn) notify(fault FaultType, addr net.Addr) {
	if c.OnFault != nil {
		c.OnFault(fault, addr)
	}
}
