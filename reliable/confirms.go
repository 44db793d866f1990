package reliable

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/netcode/peer"
	"github.com/meridian-games/netcode/transport"
)

// The buffer is flushed after it grows beyond this number of bytes.
// Each ID is 3 bytes, thus this must be a multiple of 3.
const maxBufferSize = 96

// The buffer is flushed after the oldest part is older than this.
const maxBufferAge = 100 * time.Millisecond

// Confirmations batches the IDs of delivered reliable messages per peer and
// flushes them as confirmation datagrams once a size or age threshold is
// crossed. The dual trigger bounds both worst-case acknowledgment latency
// and worst-case datagram count.
type Confirmations struct {
	book *peer.Book[*confirmBuffer]
}

// NewConfirmations creates an empty confirmation engine.
func NewConfirmations() *Confirmations {
	return &Confirmations{
		book: peer.NewBook[*confirmBuffer](peer.DefaultStaleness),
	}
}

// Received marks a reliable message with id from addr as delivered. It must
// be called exactly once after each reliable message is delivered to the
// application.
func (c *Confirmations) Received(now time.Time, addr net.Addr, id transport.DatagramID) {
	c.book.Update(now, addr, newConfirmBuffer).push(now, id)
}

// SendConfirms drains every ready buffer and emits one confirmation datagram
// per chunk on out. It must be called periodically. The datagram bytes are
// copied out of the buffer before the channel send, so no buffer reference
// survives the suspension point. A canceled context aborts the pass and the
// error propagates to the caller; the engine does not retry internally.
func (c *Confirmations) SendConfirms(ctx context.Context, now time.Time, out chan<- transport.OutDatagram) error {
	for {
		addr, buf, ok := c.book.Next()
		if !ok {
			return nil
		}
		if !buf.ready(now) {
			continue
		}
		for {
			data := buf.flush(transport.MaxConfirmPayload)
			if data == nil {
				break
			}
			payload := make([]byte, len(data))
			copy(payload, data)

			select {
			case out <- transport.NewOutDatagram(transport.Datagram{
				Type:    transport.DatagramConfirm,
				Payload: payload,
			}, addr):
			case <-ctx.Done():
				return fmt.Errorf("sending confirmations to %s: %w", addr, ctx.Err())
			}

			logrus.WithFields(logrus.Fields{
				"function": "SendConfirms",
				"addr":     addr.String(),
				"ids":      len(payload) / transport.DatagramIDSize,
			}).Debug("confirmation datagram queued")
		}
	}
}

// Clean drops peers that have been idle with no unflushed confirmations for
// the staleness window.
func (c *Confirmations) Clean(now time.Time) {
	c.book.Clean(now)
}

// confirmBuffer accumulates packed datagram IDs awaiting transmission for one
// peer.
//
// Alongside the raw bytes it keeps a cursor to the suffix boundary not yet
// handed out by flush, so pushes may interleave with an in-progress drain
// without losing or duplicating IDs: each flush call first discards the
// previously returned suffix, then carves the next chunk from the tail.
type confirmBuffer struct {
	oldest  time.Time
	buffer  []byte
	flushed int
}

func newConfirmBuffer() *confirmBuffer {
	return &confirmBuffer{buffer: make([]byte, 0, maxBufferSize)}
}

// push appends the 3-byte encoding of id. The oldest-entry timestamp resets
// only when the buffer transitions from empty to non-empty.
func (b *confirmBuffer) push(now time.Time, id transport.DatagramID) {
	if len(b.buffer) == 0 {
		b.oldest = now
	}
	b.buffer = append(b.buffer, id.Bytes()...)
	b.flushed = len(b.buffer)
}

// ready reports whether the buffer should be flushed: it is non-empty and
// either too old or too large.
func (b *confirmBuffer) ready(now time.Time) bool {
	if len(b.buffer) == 0 {
		return false
	}
	return !now.Before(b.oldest.Add(maxBufferAge)) || len(b.buffer) >= maxBufferSize
}

// flush returns the next chunk of accumulated bytes, at most maxSize long,
// or nil once the buffer is drained. Call repeatedly until it returns nil.
// Chunks are carved from the most-recently-pushed end first; the returned
// slice aliases the buffer and is only valid until the next push or flush.
//
// The cap is aligned down to a multiple of 4 even though IDs are 3 bytes
// wide. The size threshold above is a multiple of 3, so with the caps used
// by this transport a chunk never splits an ID, but the two alignments are
// inconsistent on paper; see the alignment tests before changing either.
func (b *confirmBuffer) flush(maxSize int) []byte {
	b.buffer = b.buffer[:b.flushed]

	if len(b.buffer) == 0 {
		return nil
	}
	size := len(b.buffer)
	if capped := maxSize &^ 3; size > capped {
		size = capped
	}
	b.flushed = len(b.buffer) - size
	return b.buffer[b.flushed:]
}

// Pending implements peer.Connection.
func (b *confirmBuffer) Pending() bool {
	return len(b.buffer) > 0
}
