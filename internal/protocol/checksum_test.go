package protocol

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sensorVector is a captured sensor-data packet with a valid checksum
var sensorVector = []byte{0xff, 0xfe, 0x03, 0x00, 0x07, 0xff, 0x30, 0x00, 0x5b, 0x0f, 0xef, 0x6d}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 0xFF},
		{"single zero", []byte{0x00}, 0xFF},
		{"ping header", []byte{0x00, 0x01, 0x37, 0x01}, 0xC6},
		{"wraps past 256", []byte{0xFF, 0xFF, 0x02}, 0xFF},
		{"sensor vector", sensorVector[2:11], 0x6D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("ping", func(t *testing.T) {
		got, err := Encode(SOP2Sync, 0x00, 0x01, 0x37, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0x01, 0x37, 0x01, 0xC6}, got)
	})

	t.Run("roll with payload", func(t *testing.T) {
		got, err := Encode(SOP2Async, 0x02, 0x30, 0x05, []byte{0x80, 0x00, 0x5A, 0x01})
		require.NoError(t, err)
		require.Len(t, got, 11)
		assert.Equal(t, byte(0xFE), got[1])
		assert.Equal(t, byte(0x05), got[5], "DLEN counts payload plus checksum")
		assert.True(t, VerifyCommand(got))
	})

	t.Run("payload too large", func(t *testing.T) {
		_, err := Encode(SOP2Sync, 0x02, 0x61, 0x00, make([]byte, MaxPayloadSize+1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPayloadTooLarge))
	})

	t.Run("invalid SOP2", func(t *testing.T) {
		_, err := Encode(0x00, 0x00, 0x01, 0x00, nil)
		assert.Error(t, err)
	})
}

func TestVerify_SampleVectors(t *testing.T) {
	assert.True(t, Verify(sensorVector))

	corrupted := append([]byte(nil), sensorVector...)
	corrupted[5] = 0xef
	assert.False(t, Verify(corrupted), "corrupted payload byte must fail")

	corrupted = append([]byte(nil), sensorVector...)
	corrupted[2] = 0xef
	assert.False(t, Verify(corrupted), "corrupted type byte must fail")
}

func TestVerify_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"short header", []byte{0xFF, 0xFF, 0x00}},
		{"dlen zero", []byte{0xFF, 0xFF, 0x00, 0x01, 0x00, 0xFE}},
		{"dlen overruns buffer", []byte{0xFF, 0xFF, 0x00, 0x01, 0xFF, 0xFE}},
		{"truncated vector", sensorVector[:len(sensorVector)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, Verify(tt.data))
				assert.False(t, VerifyCommand(tt.data))
			})
		})
	}
}

func TestChecksum_RoundTripAllLengths(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for n := 0; n <= MaxPayloadSize; n++ {
		payload := make([]byte, n)
		rng.Read(payload)

		cmd, err := Encode(SOP2Sync, 0x02, 0x20, byte(n), payload)
		require.NoError(t, err)
		require.True(t, VerifyCommand(cmd), "command length %d", n)

		in, err := EncodeInbound(SOP2Async, AsyncSensorData, 0x00, payload)
		require.NoError(t, err)
		require.True(t, Verify(in), "inbound length %d", n)

		for i := 0; i < n; i++ {
			for bit := 0; bit < 8; bit++ {
				cmd[6+i] ^= 1 << bit
				if VerifyCommand(cmd) {
					t.Fatalf("command length %d: flipping bit %d of byte %d still verifies", n, bit, i)
				}
				cmd[6+i] ^= 1 << bit

				in[HeaderSize+i] ^= 1 << bit
				if Verify(in) {
					t.Fatalf("inbound length %d: flipping bit %d of byte %d still verifies", n, bit, i)
				}
				in[HeaderSize+i] ^= 1 << bit
			}
		}
	}
}
