package fragment

import (
	"bytes"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/netcode/limits"
	"github.com/meridian-games/netcode/transport"
)

func testAddr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func testPayload(size int) []byte {
	payload := make([]byte, size)
	rng := rand.New(rand.NewSource(int64(size)))
	rng.Read(payload)
	return payload
}

// TestSplitSizes checks fragment counts and payload bounds.
func TestSplitSizes(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantCount int
		wantErr   bool
	}{
		{name: "empty payload", size: 0, wantCount: 1},
		{name: "single byte", size: 1, wantCount: 1},
		{name: "exactly one fragment", size: limits.FragmentPayloadSize, wantCount: 1},
		{name: "one byte over", size: limits.FragmentPayloadSize + 1, wantCount: 2},
		{name: "several fragments", size: 5*limits.FragmentPayloadSize + 100, wantCount: 6},
		{name: "largest message", size: limits.MaxMessageSize, wantCount: limits.MaxFragments},
		{name: "over the message limit", size: limits.MaxMessageSize + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces, err := Split(7, testPayload(tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTooManyFragments)
				return
			}
			require.NoError(t, err)
			require.Len(t, pieces, tt.wantCount)

			total := 0
			for i, p := range pieces {
				assert.Equal(t, transport.DatagramID(7), p.Info.MessageID)
				assert.Equal(t, uint8(i), p.Info.Index)
				assert.Equal(t, uint8(tt.wantCount), p.Info.Count)
				assert.LessOrEqual(t, len(p.Payload), limits.FragmentPayloadSize)
				total += len(p.Payload)
			}
			assert.Equal(t, tt.size, total, "no payload bytes lost")
		})
	}
}

// TestSplitFragmentsFitDatagram serializes a worst-case fragment and checks
// it against the datagram bound.
func TestSplitFragmentsFitDatagram(t *testing.T) {
	pieces, err := Split(transport.MaxDatagramID, testPayload(3*limits.FragmentPayloadSize))
	require.NoError(t, err)

	for _, p := range pieces {
		dg := transport.Datagram{
			Type:     transport.DatagramData,
			Reliable: true,
			ID:       transport.MaxDatagramID,
			Frag:     &p.Info,
			Payload:  p.Payload,
		}
		raw, err := dg.Serialize()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(raw), transport.MaxDatagramSize)
	}
}

// TestReassembleAnyOrder feeds fragments in shuffled order and expects the
// original payload byte for byte.
func TestReassembleAnyOrder(t *testing.T) {
	now := time.Now()
	payload := testPayload(4*limits.FragmentPayloadSize + 33)

	for trial := 0; trial < 5; trial++ {
		pieces, err := Split(3, payload)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(int64(trial)))
		rng.Shuffle(len(pieces), func(i, j int) { pieces[i], pieces[j] = pieces[j], pieces[i] })

		asm := NewAssembler()
		var got []byte
		for i, p := range pieces {
			msg, complete, err := asm.Add(now, testAddr(1), p.Info, p.Payload)
			require.NoError(t, err)
			if i < len(pieces)-1 {
				assert.False(t, complete, "message complete before all fragments arrived")
			} else {
				require.True(t, complete)
				got = msg
			}
		}
		assert.True(t, bytes.Equal(payload, got), "trial %d: reassembled payload differs", trial)
	}
}

// TestReassembleDuplicates ignores repeated fragments.
func TestReassembleDuplicates(t *testing.T) {
	now := time.Now()
	payload := testPayload(2 * limits.FragmentPayloadSize)
	pieces, err := Split(1, payload)
	require.NoError(t, err)
	require.Len(t, pieces, 2)

	asm := NewAssembler()
	_, complete, err := asm.Add(now, testAddr(1), pieces[0].Info, pieces[0].Payload)
	require.NoError(t, err)
	assert.False(t, complete)

	// Same fragment again: still incomplete, no error.
	_, complete, err = asm.Add(now, testAddr(1), pieces[0].Info, pieces[0].Payload)
	require.NoError(t, err)
	assert.False(t, complete)

	msg, complete, err := asm.Add(now, testAddr(1), pieces[1].Info, pieces[1].Payload)
	require.NoError(t, err)
	require.True(t, complete)
	assert.True(t, bytes.Equal(payload, msg))
}

// TestReassemblePerPeer keeps concurrent transfers from different peers and
// with different message IDs apart.
func TestReassemblePerPeer(t *testing.T) {
	now := time.Now()
	payloadA := testPayload(2 * limits.FragmentPayloadSize)
	payloadB := testPayload(2*limits.FragmentPayloadSize + 7)

	piecesA, err := Split(1, payloadA)
	require.NoError(t, err)
	piecesB, err := Split(1, payloadB)
	require.NoError(t, err)

	asm := NewAssembler()
	_, complete, err := asm.Add(now, testAddr(1), piecesA[0].Info, piecesA[0].Payload)
	require.NoError(t, err)
	assert.False(t, complete)

	// Same message ID from a different peer must not interleave.
	_, complete, err = asm.Add(now, testAddr(2), piecesB[0].Info, piecesB[0].Payload)
	require.NoError(t, err)
	assert.False(t, complete)

	msgA, complete, err := asm.Add(now, testAddr(1), piecesA[1].Info, piecesA[1].Payload)
	require.NoError(t, err)
	require.True(t, complete)
	assert.True(t, bytes.Equal(payloadA, msgA))

	msgB, complete, err := asm.Add(now, testAddr(2), piecesB[1].Info, piecesB[1].Payload)
	require.NoError(t, err)
	require.True(t, complete)
	assert.True(t, bytes.Equal(payloadB, msgB))
}

// TestReassembleMetadataErrors rejects malformed fragment metadata.
func TestReassembleMetadataErrors(t *testing.T) {
	now := time.Now()
	asm := NewAssembler()

	_, _, err := asm.Add(now, testAddr(1), transport.FragmentInfo{MessageID: 1, Index: 0, Count: 0}, []byte{1})
	assert.ErrorIs(t, err, ErrFragmentMismatch)

	_, _, err = asm.Add(now, testAddr(1), transport.FragmentInfo{MessageID: 1, Index: 3, Count: 3}, []byte{1})
	assert.ErrorIs(t, err, ErrFragmentMismatch)

	// Count disagreeing with earlier fragments of the same message.
	_, _, err = asm.Add(now, testAddr(1), transport.FragmentInfo{MessageID: 1, Index: 0, Count: 3}, []byte{1})
	require.NoError(t, err)
	_, _, err = asm.Add(now, testAddr(1), transport.FragmentInfo{MessageID: 1, Index: 1, Count: 4}, []byte{1})
	assert.ErrorIs(t, err, ErrFragmentMismatch)
}

// TestAssemblerClean abandons incomplete transfers of stale peers.
func TestAssemblerClean(t *testing.T) {
	now := time.Now()
	payload := testPayload(2 * limits.FragmentPayloadSize)
	pieces, err := Split(1, payload)
	require.NoError(t, err)

	asm := NewAssembler()
	_, _, err = asm.Add(now, testAddr(1), pieces[0].Info, pieces[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, asm.book.Len())

	asm.Clean(now.Add(24 * time.Hour))
	assert.Equal(t, 0, asm.book.Len(), "incomplete transfers are abandoned after the staleness window")
}
