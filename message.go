package netcode

import (
	"context"
	"errors"
	"net"

	"github.com/meridian-games/netcode/limits"
	"github.com/meridian-games/netcode/reliable"
)

// ErrClosed indicates the transport has been shut down.
var ErrClosed = errors.New("netcode: transport closed")

// Reliability selects the delivery guarantee for an outgoing message.
type Reliability uint8

const (
	// Unreliable messages are sent once; loss, duplication and reordering
	// are possible.
	Unreliable Reliability = iota
	// Reliable messages are acknowledged by the peer and retransmitted
	// until confirmed or the retry budget runs out.
	Reliable
)

// OutMessage is one application message queued for delivery.
type OutMessage struct {
	To          net.Addr
	Payload     []byte
	Reliability Reliability
}

// InMessage is one fully reassembled application message.
type InMessage struct {
	From    net.Addr
	Payload []byte
}

// Communicator is the message-level API handed to the game layer. It talks
// to the processor exclusively through channels; the game simulation never
// touches per-peer protocol state.
type Communicator struct {
	ctx      context.Context
	messages chan<- OutMessage
	received <-chan InMessage
	failures <-chan reliable.Failure
}

// Send queues payload for delivery to a peer. Messages larger than the
// datagram payload capacity are fragmented transparently. Send blocks only
// when the processor's intake is full; it fails once the transport is
// closed.
func (c *Communicator) Send(to net.Addr, payload []byte, reliability Reliability) error {
	if err := limits.ValidateOutgoingMessage(payload); err != nil {
		return err
	}
	// Checked first: the intake channel stays writable after shutdown, so
	// the combined select alone could accept a message nobody will process.
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.messages <- OutMessage{To: to, Payload: payload, Reliability: reliability}:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Receive returns the channel of incoming messages. Each message is
// delivered once, fully reassembled. The channel closes when the transport
// shuts down.
func (c *Communicator) Receive() <-chan InMessage {
	return c.received
}

// Failures returns the channel of delivery failures: reliable messages whose
// retry budget ran out. Each failure is reported exactly once; the game
// layer decides whether it is fatal.
func (c *Communicator) Failures() <-chan reliable.Failure {
	return c.failures
}
