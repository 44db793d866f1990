// Package netcode turns an unreliable, unordered datagram channel into a
// message transport for real-time multiplayer games, offering both
// best-effort and acknowledged delivery with bounded overhead.
//
// # Architecture
//
// The package is layered bottom-up:
//
//   - transport: wire framing (datagram types, 3-byte reliable-message IDs)
//     and UDP socket I/O behind a pair of channels.
//   - peer: the connection book, a generic per-peer state registry with
//     create-on-demand, fair round-robin iteration and staleness sweeping,
//     shared by every reliability concern.
//   - reliable: the confirmation engine (batches acknowledgment IDs per peer
//     and flushes on a size-or-age trigger) and the retransmission engine
//     (re-emits unacknowledged datagrams on a doubling backoff, reporting a
//     delivery failure once the retry budget runs out).
//   - fragment: splitting of messages above the datagram payload capacity
//     and order-independent reassembly.
//
// The root package glues them together: a single Processor goroutine owns
// all per-peer state and drives the engines from a tick loop, while the
// Communicator exposes the message API to the game simulation.
//
// # Usage
//
//	node, err := netcode.Listen(":7777", netcode.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	err = node.Send(peerAddr, payload, netcode.Reliable)
//
//	for msg := range node.Receive() {
//	    // msg.From, msg.Payload
//	}
//
// Reliable delivery that exhausts its retry budget surfaces on
// node.Failures(); the game decides whether a lost peer is fatal.
//
// # Concurrency
//
// Engines never read a wall clock: every entry point takes the current time
// from the processor, which is the only component holding a clock. The clock
// is injectable (benbjohnson/clock), so the whole reliability layer runs
// deterministically under test without timers or sleeps.
package netcode
