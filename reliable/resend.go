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

const (
	// retryInterval is the wait before the first retransmission. Each
	// subsequent retry doubles the wait, capped at retryIntervalMax.
	retryInterval    = 300 * time.Millisecond
	retryIntervalMax = 4 * time.Second

	// maxRetries is the retransmission budget. A message still
	// unacknowledged after this many retries is reported as failed.
	maxRetries = 6
)

// Failure reports a reliable message whose delivery was abandoned after the
// retry budget was exhausted. Each failure is reported exactly once.
type Failure struct {
	Addr net.Addr
	ID   transport.DatagramID
}

// Resends tracks reliable messages awaiting acknowledgment per peer and
// re-emits them after a timeout. It also allocates the per-peer datagram ID
// sequence so IDs stay unique within one peer's 3-byte space.
type Resends struct {
	book *peer.Book[*sendQueue]
}

// NewResends creates an empty retransmission engine.
func NewResends() *Resends {
	return &Resends{
		book: peer.NewBook[*sendQueue](peer.DefaultStaleness),
	}
}

// NextID allocates the next datagram ID for addr, wrapping within the 3-byte
// ID space.
func (r *Resends) NextID(now time.Time, addr net.Addr) transport.DatagramID {
	q := r.book.Update(now, addr, newSendQueue)
	id := q.nextID
	q.nextID = q.nextID.Next()
	return id
}

// Track records a reliable datagram as sent but not yet acknowledged. The
// datagram is stored verbatim so retransmissions are byte-identical to the
// original send.
func (r *Resends) Track(now time.Time, addr net.Addr, dg transport.Datagram) {
	q := r.book.Update(now, addr, newSendQueue)
	q.tracked[dg.ID] = &pendingSend{datagram: dg, sentAt: now}
}

// Acknowledge removes id from addr's outstanding set. Acknowledging an
// unknown or already-acknowledged ID is a no-op: confirmations may be
// duplicated or arrive late, and that is normal.
func (r *Resends) Acknowledge(now time.Time, addr net.Addr, id transport.DatagramID) {
	q, ok := r.book.Get(now, addr)
	if !ok {
		return
	}
	delete(q.tracked, id)
}

// ResendDue re-emits every outstanding datagram whose retry wait has elapsed
// and refreshes its send time. Messages that exhausted the retry budget are
// dropped from tracking and returned as failures; each is reported exactly
// once and never retried again. A canceled context aborts the pass; already
// collected failures are still returned alongside the error.
func (r *Resends) ResendDue(ctx context.Context, now time.Time, out chan<- transport.OutDatagram) ([]Failure, error) {
	var failures []Failure
	for {
		addr, q, ok := r.book.Next()
		if !ok {
			return failures, nil
		}
		for id, p := range q.tracked {
			if now.Sub(p.sentAt) < retryWait(p.retries) {
				continue
			}
			if p.retries >= maxRetries {
				delete(q.tracked, id)
				failures = append(failures, Failure{Addr: addr, ID: id})
				logrus.WithFields(logrus.Fields{
					"function": "ResendDue",
					"addr":     addr.String(),
					"id":       id,
					"retries":  p.retries,
				}).Warn("reliable message delivery failed")
				continue
			}

			p.retries++
			p.sentAt = now

			select {
			case out <- transport.NewOutDatagram(p.datagram, addr):
			case <-ctx.Done():
				return failures, fmt.Errorf("resending to %s: %w", addr, ctx.Err())
			}
		}
	}
}

// Clean drops peers with no outstanding messages that have been idle for the
// staleness window.
func (r *Resends) Clean(now time.Time) {
	r.book.Clean(now)
}

// retryWait returns the wait before the next retransmission given the number
// of retries already performed.
func retryWait(retries int) time.Duration {
	if retries > 8 {
		return retryIntervalMax
	}
	wait := retryInterval << uint(retries)
	if wait > retryIntervalMax {
		return retryIntervalMax
	}
	return wait
}

// pendingSend is one tracked reliable datagram. Its lifecycle is
// sent -> acknowledged (removed) or sent -> failed (reported once), with
// timeouts looping it back to sent until the retry budget runs out.
type pendingSend struct {
	datagram transport.Datagram
	sentAt   time.Time
	retries  int
}

// sendQueue is the per-peer retransmission state: the outstanding datagrams
// and the peer's ID allocator.
type sendQueue struct {
	nextID  transport.DatagramID
	tracked map[transport.DatagramID]*pendingSend
}

func newSendQueue() *sendQueue {
	return &sendQueue{tracked: make(map[transport.DatagramID]*pendingSend)}
}

// Pending implements peer.Connection.
func (q *sendQueue) Pending() bool {
	return len(q.tracked) > 0
}
