package netcode

import (
	"net"

	"github.com/meridian-games/netcode/transport"
)

// Node bundles a UDP transport with its processor: one endpoint of the game
// network. The embedded Communicator is the message API.
type Node struct {
	*Communicator

	transport *transport.UDPTransport
	processor *Processor
}

// Listen opens a UDP endpoint on listenAddr and starts its processor.
func Listen(listenAddr string, cfg Config) (*Node, error) {
	tr, err := transport.NewUDPTransport(listenAddr, transport.DefaultConfig())
	if err != nil {
		return nil, err
	}

	proc, comm := NewProcessor(tr.In(), tr.Out(), cfg)
	proc.Start()

	return &Node{
		Communicator: comm,
		transport:    tr,
		processor:    proc,
	}, nil
}

// LocalAddr returns the address the node is listening on.
func (n *Node) LocalAddr() net.Addr {
	return n.transport.LocalAddr()
}

// Close shuts down the processor and the underlying socket.
func (n *Node) Close() error {
	n.processor.Close()
	return n.transport.Close()
}
