// Package transport implements the datagram layer of the netcode protocol:
// wire framing, the compact reliable-message sequence number, and UDP socket
// I/O.
//
// # Wire Format
//
// Every datagram begins with a one-byte type tag which determines the rest of
// the parse:
//
//	DatagramData    [type][flags][ID?][frag metadata?][payload]
//	DatagramConfirm [type][packed 3-byte IDs...]
//
// Data datagram flags mark the payload as reliable (a 3-byte DatagramID
// follows) and/or as one fragment of a larger message (3-byte message ID,
// fragment index and fragment count follow). Confirmation payloads are always
// an exact multiple of the 3-byte ID width.
//
// Datagrams never exceed MaxDatagramSize. An unrecognized type tag is a
// protocol error: the datagram is discarded and reported, but the peer's
// other state is unaffected.
//
// # Socket I/O
//
// UDPTransport decouples the socket from the protocol engines with a pair of
// channels: engines queue OutDatagram values and consume InDatagram values,
// while dedicated reader and writer goroutines own the socket:
//
//	t, err := transport.NewUDPTransport(":0", transport.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	t.Out() <- transport.NewOutDatagram(dg, peerAddr)
//	in := <-t.In()
package transport
