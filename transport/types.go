package transport

import "net"

// OutDatagram is one datagram queued for delivery to a peer. The datagram is
// serialized by the writer goroutine just before it hits the socket.
type OutDatagram struct {
	Datagram Datagram
	Addr     net.Addr
}

// NewOutDatagram builds an outbound datagram for addr.
func NewOutDatagram(dg Datagram, addr net.Addr) OutDatagram {
	return OutDatagram{Datagram: dg, Addr: addr}
}

// InDatagram is one raw datagram received from the network together with its
// originating address. Classification by type tag happens downstream.
type InDatagram struct {
	Data []byte
	Addr net.Addr
}
