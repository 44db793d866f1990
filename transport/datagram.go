package transport

import (
	"errors"
	"fmt"

	"github.com/meridian-games/netcode/limits"
)

const (
	// MaxDatagramSize is the largest datagram this transport sends or
	// accepts, header included.
	MaxDatagramSize = limits.MaxDatagramSize

	// MaxConfirmPayload is the ID capacity of one confirmation datagram in
	// bytes (everything after the type tag).
	MaxConfirmPayload = MaxDatagramSize - 1
)

// Data datagram flag bits.
const (
	flagReliable byte = 1 << iota
	flagFragment
)

var (
	// ErrTruncatedDatagram indicates a datagram shorter than its header
	// requires.
	ErrTruncatedDatagram = errors.New("datagram truncated")

	// ErrUnknownDatagramType indicates an unrecognized type tag. The
	// datagram is discarded; the peer's other state is unaffected.
	ErrUnknownDatagramType = errors.New("unknown datagram type")

	// ErrDatagramTooLarge indicates a serialized datagram would exceed
	// MaxDatagramSize.
	ErrDatagramTooLarge = errors.New("datagram exceeds maximum size")

	// ErrConfirmAlignment indicates a confirmation payload whose length is
	// not a multiple of the datagram ID width.
	ErrConfirmAlignment = errors.New("confirmation payload not aligned to ID width")
)

// FragmentInfo is the reassembly metadata carried by fragmented data
// datagrams. Every fragment is self-describing so reassembly does not depend
// on arrival order.
type FragmentInfo struct {
	// MessageID identifies the fragmented message within the sender's
	// 3-byte message ID space.
	MessageID DatagramID
	// Index is the zero-based position of this fragment.
	Index uint8
	// Count is the total number of fragments in the message.
	Count uint8
}

// Datagram is one decoded netcode datagram.
//
// For DatagramData, Payload is the application payload (or one fragment of
// it) and ID is meaningful only when Reliable is set. For DatagramConfirm,
// Payload is a packed sequence of 3-byte IDs and the remaining fields are
// unused.
type Datagram struct {
	Type     DatagramType
	Reliable bool
	ID       DatagramID
	Frag     *FragmentInfo
	Payload  []byte
}

// headerLen returns the serialized header size of the datagram.
func (d *Datagram) headerLen() int {
	if d.Type == DatagramConfirm {
		return 1
	}
	n := 2 // type tag + flags
	if d.Reliable {
		n += DatagramIDSize
	}
	if d.Frag != nil {
		n += DatagramIDSize + 2
	}
	return n
}

// Serialize converts the datagram to its wire representation.
//
// Wire format: [type (1 byte)] followed by a type-specific body. Data
// datagrams carry [flags (1)][ID (3, if reliable)][message ID (3), index (1),
// count (1), if fragmented][payload]. Confirmation datagrams carry packed
// 3-byte IDs.
func (d *Datagram) Serialize() ([]byte, error) {
	switch d.Type {
	case DatagramData:
	case DatagramConfirm:
		if len(d.Payload)%DatagramIDSize != 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrConfirmAlignment, len(d.Payload))
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDatagramType, d.Type)
	}

	size := d.headerLen() + len(d.Payload)
	if size > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDatagramTooLarge, size)
	}

	buf := make([]byte, size)
	buf[0] = byte(d.Type)
	if d.Type == DatagramConfirm {
		copy(buf[1:], d.Payload)
		return buf, nil
	}

	var flags byte
	if d.Reliable {
		flags |= flagReliable
	}
	if d.Frag != nil {
		flags |= flagFragment
	}
	buf[1] = flags

	off := 2
	if d.Reliable {
		d.ID.Put(buf[off:])
		off += DatagramIDSize
	}
	if d.Frag != nil {
		d.Frag.MessageID.Put(buf[off:])
		off += DatagramIDSize
		buf[off] = d.Frag.Index
		buf[off+1] = d.Frag.Count
		off += 2
	}
	copy(buf[off:], d.Payload)

	return buf, nil
}

// ParseDatagram decodes a raw datagram. The type tag is decoded first and
// determines the rest of the parse. Decode errors mean the datagram is
// malformed and must be discarded; they are never fatal to the connection.
func ParseDatagram(data []byte) (*Datagram, error) {
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDatagramTooLarge, len(data))
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty", ErrTruncatedDatagram)
	}

	switch DatagramType(data[0]) {
	case DatagramConfirm:
		return parseConfirm(data[1:])
	case DatagramData:
		return parseData(data[1:])
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDatagramType, data[0])
	}
}

func parseConfirm(body []byte) (*Datagram, error) {
	if len(body)%DatagramIDSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrConfirmAlignment, len(body))
	}
	payload := make([]byte, len(body))
	copy(payload, body)
	return &Datagram{Type: DatagramConfirm, Payload: payload}, nil
}

func parseData(body []byte) (*Datagram, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: missing flags", ErrTruncatedDatagram)
	}
	flags := body[0]
	body = body[1:]

	dg := &Datagram{Type: DatagramData, Reliable: flags&flagReliable != 0}
	if dg.Reliable {
		id, err := DatagramIDFromBytes(body)
		if err != nil {
			return nil, err
		}
		dg.ID = id
		body = body[DatagramIDSize:]
	}
	if flags&flagFragment != 0 {
		msgID, err := DatagramIDFromBytes(body)
		if err != nil {
			return nil, err
		}
		if len(body) < DatagramIDSize+2 {
			return nil, fmt.Errorf("%w: missing fragment metadata", ErrTruncatedDatagram)
		}
		dg.Frag = &FragmentInfo{
			MessageID: msgID,
			Index:     body[DatagramIDSize],
			Count:     body[DatagramIDSize+1],
		}
		body = body[DatagramIDSize+2:]
	}

	dg.Payload = make([]byte, len(body))
	copy(dg.Payload, body)

	return dg, nil
}

// ConfirmIDs unpacks the IDs of a confirmation datagram.
func (d *Datagram) ConfirmIDs() ([]DatagramID, error) {
	if d.Type != DatagramConfirm {
		return nil, fmt.Errorf("%w: not a confirmation", ErrUnknownDatagramType)
	}
	if len(d.Payload)%DatagramIDSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrConfirmAlignment, len(d.Payload))
	}
	ids := make([]DatagramID, 0, len(d.Payload)/DatagramIDSize)
	for off := 0; off < len(d.Payload); off += DatagramIDSize {
		id, err := DatagramIDFromBytes(d.Payload[off:])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
