package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInbound(t *testing.T, sop2, code, tag byte, data []byte) []byte {
	t.Helper()
	b, err := EncodeInbound(sop2, code, tag, data)
	require.NoError(t, err)
	return b
}

func TestFramer_WholePacket(t *testing.T) {
	f := NewFramer()
	packets := f.Feed(sensorVector)

	require.Len(t, packets, 1)
	assert.Equal(t, sensorVector, packets[0].Raw)
	assert.Equal(t, 0, f.Buffered())
}

func TestFramer_Partitions(t *testing.T) {
	tests := []struct {
		name  string
		split []int // chunk boundaries
	}{
		{"two halves", []int{6}},
		{"header then body", []int{5}},
		{"partial header", []int{2, 4}},
		{"byte by byte", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"last byte alone", []int{11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer()
			var got []*Packet
			prev := 0
			for _, cut := range append(tt.split, len(sensorVector)) {
				got = append(got, f.Feed(sensorVector[prev:cut])...)
				prev = cut
			}

			require.Len(t, got, 1)
			assert.Equal(t, sensorVector, got[0].Raw)
			assert.Equal(t, 0, f.Buffered())
		})
	}
}

func TestFramer_ConcatenatedPackets(t *testing.T) {
	ack := mustInbound(t, SOP2Sync, StatusOK, 0x01, nil)
	resp := mustInbound(t, SOP2Sync, StatusOK, 0x02, []byte{0x01, 0x02, 0x03})
	msg := mustInbound(t, SOP2Async, AsyncOrbBasicMessage, 0x00, []byte("hi\n"))

	var stream []byte
	stream = append(stream, ack...)
	stream = append(stream, sensorVector...)
	stream = append(stream, resp...)
	stream = append(stream, msg...)

	f := NewFramer()
	packets := f.Feed(stream)

	require.Len(t, packets, 4)
	assert.Equal(t, ack, packets[0].Raw)
	assert.Equal(t, sensorVector, packets[1].Raw)
	assert.Equal(t, resp, packets[2].Raw)
	assert.Equal(t, msg, packets[3].Raw)
}

func TestFramer_RetainsIncompleteTail(t *testing.T) {
	f := NewFramer()
	stream := append(append([]byte(nil), sensorVector...), sensorVector[:7]...)

	packets := f.Feed(stream)
	require.Len(t, packets, 1)
	assert.Equal(t, 7, f.Buffered())

	packets = f.Feed(sensorVector[7:])
	require.Len(t, packets, 1)
	assert.Equal(t, sensorVector, packets[0].Raw)
	assert.Equal(t, 0, f.Buffered())
}

func TestFramer_ShortBufferHeld(t *testing.T) {
	f := NewFramer()
	assert.Empty(t, f.Feed([]byte{0xFF, 0xFF, 0x00}))
	assert.Equal(t, 3, f.Buffered())
	assert.Empty(t, f.Feed(nil))
	assert.Equal(t, 3, f.Buffered())
}

func TestFramer_LargeDeclaredLengthWaits(t *testing.T) {
	f := NewFramer()
	// A corrupt DLEN claims far more bytes than are present.
	assert.Empty(t, f.Feed([]byte{0xFF, 0xFF, 0x00, 0x01, 0xFF, 0x00, 0x00}))
	assert.Equal(t, 7, f.Buffered())
}

func TestFramer_PacketsDoNotAliasBuffer(t *testing.T) {
	f := NewFramer()
	first := f.Feed(sensorVector)
	require.Len(t, first, 1)

	other := mustInbound(t, SOP2Sync, StatusOK, 0x09, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x11})
	second := f.Feed(other)
	require.Len(t, second, 1)

	assert.Equal(t, sensorVector, first[0].Raw)
	assert.Equal(t, other, second[0].Raw)
}

func TestFramer_Reset(t *testing.T) {
	f := NewFramer()
	f.Feed(sensorVector[:4])
	f.Reset()
	assert.Equal(t, 0, f.Buffered())

	packets := f.Feed(sensorVector)
	require.Len(t, packets, 1)
}
