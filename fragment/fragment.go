// Package fragment splits application messages that exceed the datagram
// payload capacity and reassembles them on receipt.
//
// Every fragment is self-describing: it carries its message ID, its position
// and the total fragment count, so reassembly works regardless of datagram
// arrival order. Partial reassembly state is kept per peer in a connection
// book and swept after the staleness window, bounding memory for peers that
// vanish mid-transfer.
package fragment

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/meridian-games/netcode/limits"
	"github.com/meridian-games/netcode/peer"
	"github.com/meridian-games/netcode/transport"
)

var (
	// ErrTooManyFragments indicates a message that would not fit in the
	// maximum fragment count.
	ErrTooManyFragments = errors.New("message needs too many fragments")

	// ErrFragmentMismatch indicates a fragment inconsistent with the
	// metadata of previously received fragments of the same message.
	ErrFragmentMismatch = errors.New("fragment metadata mismatch")
)

// Piece is one outbound fragment: the wire metadata plus its slice of the
// original payload.
type Piece struct {
	Info    transport.FragmentInfo
	Payload []byte
}

// Split cuts payload into pieces of at most limits.FragmentPayloadSize bytes,
// tagged with messageID. Payloads that fit a single piece still get
// Count == 1 metadata; callers that want to skip fragment framing entirely
// should branch before calling. Payloads needing more than
// limits.MaxFragments pieces are rejected.
func Split(messageID transport.DatagramID, payload []byte) ([]Piece, error) {
	chunk := limits.FragmentPayloadSize
	count := (len(payload) + chunk - 1) / chunk
	if count == 0 {
		count = 1
	}
	if count > limits.MaxFragments {
		return nil, fmt.Errorf("%w: %d bytes need %d fragments, limit %d",
			ErrTooManyFragments, len(payload), count, limits.MaxFragments)
	}

	pieces := make([]Piece, 0, count)
	for i := 0; i < count; i++ {
		start := i * chunk
		end := start + chunk
		if end > len(payload) {
			end = len(payload)
		}
		pieces = append(pieces, Piece{
			Info: transport.FragmentInfo{
				MessageID: messageID,
				Index:     uint8(i),
				Count:     uint8(count),
			},
			Payload: payload[start:end],
		})
	}
	return pieces, nil
}

// Assembler reassembles fragmented messages per peer.
type Assembler struct {
	book *peer.Book[*reassembly]
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		book: peer.NewBook[*reassembly](peer.DefaultStaleness),
	}
}

// Add feeds one received fragment into the assembler. Once every fragment of
// the message has arrived it returns the complete payload and true; until
// then it returns nil and false. Duplicate fragments are ignored.
func (a *Assembler) Add(now time.Time, addr net.Addr, info transport.FragmentInfo, payload []byte) ([]byte, bool, error) {
	if info.Count == 0 || info.Index >= info.Count {
		return nil, false, fmt.Errorf("%w: index %d of %d", ErrFragmentMismatch, info.Index, info.Count)
	}

	r := a.book.Update(now, addr, newReassembly)
	p, ok := r.partial[info.MessageID]
	if !ok {
		p = &partialMessage{pieces: make([][]byte, info.Count), remaining: int(info.Count)}
		r.partial[info.MessageID] = p
	}
	if len(p.pieces) != int(info.Count) {
		return nil, false, fmt.Errorf("%w: count %d, previously %d", ErrFragmentMismatch, info.Count, len(p.pieces))
	}
	if p.pieces[info.Index] != nil {
		return nil, false, nil // duplicate fragment
	}

	piece := make([]byte, len(payload))
	copy(piece, payload)
	p.pieces[info.Index] = piece
	p.remaining--
	if p.remaining > 0 {
		return nil, false, nil
	}

	delete(r.partial, info.MessageID)
	size := 0
	for _, pc := range p.pieces {
		size += len(pc)
	}
	message := make([]byte, 0, size)
	for _, pc := range p.pieces {
		message = append(message, pc...)
	}
	return message, true, nil
}

// Clean sweeps reassembly state of peers idle past the staleness window,
// abandoning their incomplete messages.
func (a *Assembler) Clean(now time.Time) {
	a.book.Clean(now)
}

// reassembly is one peer's in-progress messages.
type reassembly struct {
	partial map[transport.DatagramID]*partialMessage
}

func newReassembly() *reassembly {
	return &reassembly{partial: make(map[transport.DatagramID]*partialMessage)}
}

// Pending implements peer.Connection. Incomplete messages are abandonable
// state, not committed work: reporting false lets Clean bound the memory
// held for peers that disappear mid-transfer.
func (r *reassembly) Pending() bool {
	return false
}

// partialMessage holds received fragments until the set is complete.
type partialMessage struct {
	pieces    [][]byte
	remaining int
}
