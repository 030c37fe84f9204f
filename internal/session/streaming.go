package session

import (
	"encoding/binary"
	"fmt"
)

// Sensor streaming limits
const (
	// MaxStreamRate is the robot's internal sampling rate in Hz. Requested
	// rates divide it, so factors of 400 give exact results.
	MaxStreamRate = 400

	// DefaultStreamRate is used until UpdateStreaming sets another
	DefaultStreamRate = 10

	streamingPayloadSize = 13
)

// EncodeStreaming builds the SetDataStreaming payload:
//
//	N      uint16  divisor of the 400 Hz sample rate
//	M      uint16  samples per packet
//	MASK1  uint32
//	PCNT   uint8   packet count, 0 for unlimited
//	MASK2  uint32
func EncodeStreaming(rate, frames int, mask1, mask2 uint32) ([]byte, error) {
	if rate <= 0 || rate > MaxStreamRate {
		return nil, fmt.Errorf("invalid stream rate %d: must be between 1 and %d", rate, MaxStreamRate)
	}
	if frames <= 0 || frames > 0xFFFF {
		return nil, fmt.Errorf("invalid frames per packet %d", frames)
	}

	b := make([]byte, streamingPayloadSize)
	binary.BigEndian.PutUint16(b[0:2], uint16(MaxStreamRate/rate))
	binary.BigEndian.PutUint16(b[2:4], uint16(frames))
	binary.BigEndian.PutUint32(b[4:8], mask1)
	b[8] = 0
	binary.BigEndian.PutUint32(b[9:13], mask2)
	return b, nil
}
