// Package limits provides centralized size limits for the netcode protocol.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxDatagramSize is the upper bound for any datagram put on the wire
	// (header included). It is kept well below common path MTUs so the IP
	// layer never fragments our datagrams.
	MaxDatagramSize = 512

	// DataHeaderSize is the worst-case data datagram header: type tag (1),
	// flags (1), datagram ID (3) and fragmentation metadata (5).
	DataHeaderSize = 10

	// FragmentPayloadSize is the payload capacity of a single fragment.
	FragmentPayloadSize = MaxDatagramSize - DataHeaderSize

	// MaxFragments is the largest number of fragments one message may span.
	// The fragment index and count are carried in one byte each.
	MaxFragments = 255

	// MaxMessageSize is the largest application message accepted by the
	// message API.
	MaxMessageSize = MaxFragments * FragmentPayloadSize
)

var (
	// ErrMessageEmpty indicates an empty message was provided.
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size.
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidateOutgoingMessage validates an application message against
// MaxMessageSize before it enters the transport.
func ValidateOutgoingMessage(message []byte) error {
	return ValidateMessageSize(message, MaxMessageSize)
}
