package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDatagramRoundTrip serializes and reparses every datagram shape.
func TestDatagramRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		dg   Datagram
	}{
		{
			name: "unreliable data",
			dg:   Datagram{Type: DatagramData, Payload: []byte{1, 2, 3}},
		},
		{
			name: "reliable data",
			dg:   Datagram{Type: DatagramData, Reliable: true, ID: 1042, Payload: []byte("state update")},
		},
		{
			name: "reliable fragment",
			dg: Datagram{
				Type:     DatagramData,
				Reliable: true,
				ID:       77,
				Frag:     &FragmentInfo{MessageID: 5, Index: 2, Count: 9},
				Payload:  bytes.Repeat([]byte{0xAB}, 100),
			},
		},
		{
			name: "unreliable fragment",
			dg: Datagram{
				Type:    DatagramData,
				Frag:    &FragmentInfo{MessageID: 1, Index: 0, Count: 2},
				Payload: []byte{9},
			},
		},
		{
			name: "empty data payload",
			dg:   Datagram{Type: DatagramData, Payload: []byte{}},
		},
		{
			name: "confirmation",
			dg:   Datagram{Type: DatagramConfirm, Payload: []byte{0, 4, 18, 0, 0, 43}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.dg.Serialize()
			require.NoError(t, err)
			require.LessOrEqual(t, len(raw), MaxDatagramSize)
			assert.Equal(t, byte(tt.dg.Type), raw[0], "type tag must be the first byte")

			parsed, err := ParseDatagram(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.dg.Type, parsed.Type)
			assert.Equal(t, tt.dg.Reliable, parsed.Reliable)
			if tt.dg.Reliable {
				assert.Equal(t, tt.dg.ID, parsed.ID)
			}
			assert.Equal(t, tt.dg.Frag, parsed.Frag)
			assert.Equal(t, tt.dg.Payload, parsed.Payload)
		})
	}
}

// TestSerializeErrors covers builder-side contract failures.
func TestSerializeErrors(t *testing.T) {
	t.Run("oversized datagram", func(t *testing.T) {
		dg := Datagram{Type: DatagramData, Payload: make([]byte, MaxDatagramSize)}
		_, err := dg.Serialize()
		assert.ErrorIs(t, err, ErrDatagramTooLarge)
	})

	t.Run("misaligned confirmation", func(t *testing.T) {
		dg := Datagram{Type: DatagramConfirm, Payload: []byte{1, 2, 3, 4}}
		_, err := dg.Serialize()
		assert.ErrorIs(t, err, ErrConfirmAlignment)
	})

	t.Run("unknown type", func(t *testing.T) {
		dg := Datagram{Type: 200, Payload: []byte{1}}
		_, err := dg.Serialize()
		assert.ErrorIs(t, err, ErrUnknownDatagramType)
	})
}

// TestParseErrors covers malformed inbound datagrams. All of these must be
// reported as errors rather than panicking, since they arrive off the wire.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: []byte{}, wantErr: ErrTruncatedDatagram},
		{name: "unknown type tag", data: []byte{99, 1, 2}, wantErr: ErrUnknownDatagramType},
		{name: "data without flags", data: []byte{byte(DatagramData)}, wantErr: ErrTruncatedDatagram},
		{
			name:    "reliable data with truncated ID",
			data:    []byte{byte(DatagramData), flagReliable, 0, 4},
			wantErr: ErrTruncatedDatagram,
		},
		{
			name:    "fragment with truncated metadata",
			data:    []byte{byte(DatagramData), flagFragment, 0, 0, 1, 0},
			wantErr: ErrTruncatedDatagram,
		},
		{
			name:    "misaligned confirmation",
			data:    []byte{byte(DatagramConfirm), 1, 2, 3, 4},
			wantErr: ErrConfirmAlignment,
		},
		{
			name:    "oversized datagram",
			data:    make([]byte, MaxDatagramSize+1),
			wantErr: ErrDatagramTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDatagram(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfirmIDs unpacks a confirmation payload back into IDs.
func TestConfirmIDs(t *testing.T) {
	dg := Datagram{Type: DatagramConfirm, Payload: []byte{0, 4, 18, 0, 0, 43, 0xFF, 0xFF, 0xFF}}
	ids, err := dg.ConfirmIDs()
	require.NoError(t, err)
	assert.Equal(t, []DatagramID{1042, 43, MaxDatagramID}, ids)

	data := Datagram{Type: DatagramData, Payload: []byte{1}}
	_, err = data.ConfirmIDs()
	assert.Error(t, err)
}
