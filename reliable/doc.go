// Package reliable implements the acknowledgment and retransmission engines
// that turn the unordered datagram layer into a reliable delivery service.
//
// # Confirmations
//
// Confirmations records the ID of every delivered reliable message and
// batches the IDs per peer into confirmation datagrams. A peer's batch is
// flushed once it reaches a size threshold or once its oldest entry crosses
// an age threshold, whichever happens first, trading a small fixed delay for
// fewer datagrams on the wire.
//
// Within one flush pass chunks are carved from the most-recently-pushed end
// of the batch first. Receivers must not assume confirmations arrive in the
// order messages were delivered, only that every ID is flushed exactly once.
//
// # Resends
//
// Resends keeps every reliable datagram until the peer confirms it,
// re-emitting it on a doubling backoff. After the retry budget is exhausted
// the message is dropped and a Failure is reported upward exactly once; the
// application decides whether that is fatal. Duplicate and late
// acknowledgments are no-ops, since datagram duplication and reordering are
// normal.
//
// # Driving the engines
//
// Both engines are passive: every entry point takes the current time from
// the caller and nothing inside reads a wall clock, so a single orchestrator
// tick loop drives them and tests use synthetic clocks. Per-peer state lives
// in peer.Book registries, giving both engines identical create-on-demand,
// fair-iteration and staleness semantics.
package reliable
