// Package limits provides centralized size constants and validation functions
// for the netcode wire protocol. Keeping every limit in one place ensures the
// framing, fragmentation and reliability layers enforce identical bounds.
//
// # Size Hierarchy
//
//   - MaxDatagramSize (512 bytes): the largest datagram the transport will
//     ever put on the wire. Chosen to stay comfortably below common path MTUs
//     so datagrams are never fragmented by the IP layer.
//
//   - MaxMessageSize: the largest application message accepted by the
//     message API. Messages above the single-datagram payload limit are split
//     into up to 255 fragments, so this is 255 times the fragment payload
//     capacity.
//
// # Validation Functions
//
// Validation helpers return sentinel errors wrapped with size context:
//
//	if err := limits.ValidateMessageSize(payload, limits.MaxMessageSize); err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
package limits
