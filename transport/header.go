// Package transport implements the datagram layer of the netcode protocol.
//
// This file defines the datagram type tag and the compact sequence number
// identifying reliable messages on the wire.
package transport

import (
	"errors"
	"fmt"
)

// DatagramType identifies the kind of a netcode datagram. It is always the
// first byte of a datagram and determines how the rest is parsed.
type DatagramType byte

const (
	// DatagramData carries an application payload. It may be reliable or
	// unreliable and may be a single fragment of a larger message.
	DatagramData DatagramType = iota + 1
	// DatagramConfirm acknowledges reliable messages. Its payload is a
	// packed sequence of 3-byte datagram IDs.
	DatagramConfirm
)

const (
	// DatagramIDSize is the wire width of a DatagramID in bytes.
	DatagramIDSize = 3

	// MaxDatagramID is the largest representable datagram ID.
	MaxDatagramID = 1<<(8*DatagramIDSize) - 1
)

// ErrIDOutOfRange indicates a value does not fit the 3-byte ID space.
var ErrIDOutOfRange = errors.New("datagram ID out of range")

// DatagramID is a sequence number identifying one reliable message from one
// peer. IDs occupy a 3-byte space and wrap around when exhausted, so a
// (peer, ID) pair is unique only within one wrap period.
type DatagramID uint32

// NewDatagramID converts an integer to a DatagramID. It returns
// ErrIDOutOfRange if the value exceeds the 3-byte ID space; it never wraps
// silently.
func NewDatagramID(n uint32) (DatagramID, error) {
	if n > MaxDatagramID {
		return 0, fmt.Errorf("%w: %d", ErrIDOutOfRange, n)
	}
	return DatagramID(n), nil
}

// Next returns the subsequent ID, wrapping to zero past MaxDatagramID.
func (id DatagramID) Next() DatagramID {
	return DatagramID((uint32(id) + 1) & MaxDatagramID)
}

// Bytes returns the fixed 3-byte big-endian encoding of the ID.
func (id DatagramID) Bytes() []byte {
	return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
}

// Put writes the 3-byte big-endian encoding of the ID into dst.
// It panics if dst is shorter than DatagramIDSize; callers size their
// buffers from the framing constants, so a short buffer is a programming
// error that must fail loudly.
func (id DatagramID) Put(dst []byte) {
	if len(dst) < DatagramIDSize {
		panic(fmt.Sprintf("transport: buffer of %d bytes cannot hold a datagram ID", len(dst)))
	}
	dst[0] = byte(id >> 16)
	dst[1] = byte(id >> 8)
	dst[2] = byte(id)
}

// DatagramIDFromBytes decodes a 3-byte big-endian ID from the front of data.
func DatagramIDFromBytes(data []byte) (DatagramID, error) {
	if len(data) < DatagramIDSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrTruncatedDatagram, len(data))
	}
	return DatagramID(uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])), nil
}
