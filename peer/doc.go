// Package peer provides the connection book: a generic per-peer state
// registry shared by every reliability concern of the transport.
//
// Acknowledgment batching, retransmission tracking and fragment reassembly
// all need the same lifecycle for their per-peer state: create it on first
// reference, iterate it fairly, and garbage-collect it once the peer has been
// idle with no outstanding work. Book implements that lifecycle once, generic
// over any state type that can report whether it still has pending work:
//
//	type buffer struct{ ... }
//	func (b *buffer) Pending() bool { return len(b.data) > 0 }
//
//	book := peer.NewBook[*buffer](peer.DefaultStaleness)
//	buf := book.Update(now, addr, newBuffer)
//
// # Iteration
//
// Next returns one entry at a time in a round-robin sweep. A full sweep
// visits every peer exactly once, then Next reports false and the next call
// starts a fresh sweep. Engines drive a whole sweep per tick so no peer is
// starved by another peer's volume.
//
// # Staleness
//
// Clean removes an entry only when it has no pending work and has not been
// touched within the staleness window. Entries with pending work survive any
// age.
//
// The book is not safe for concurrent use; a single processor goroutine
// drives all engines, so entries are never observed half-updated.
package peer
