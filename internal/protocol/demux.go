package protocol

import "encoding/binary"

// WordSize is the width in bytes of one sensor word
const WordSize = 2

// Field is one active sensor group as seen by the demultiplexer: its width
// in 16-bit words and the callback that receives its slice of the payload.
type Field struct {
	Name   string
	Words  int
	Decode func(data []byte)
}

// Demux splits a sensor-data packet's payload across fields, in the order
// given, handing each Decode its own Words*2 byte slice. Walking stops once
// the declared payload length has been consumed.
//
// If the fields overrun the payload, or run out before consuming all of it,
// Demux returns an ErrMaskMismatch error: the field list no longer matches
// what the device is streaming. Fields decoded before an overrun was
// detected have already been called.
func Demux(fields []Field, pkt *Packet) error {
	if len(fields) == 0 {
		return nil
	}

	declared := pkt.PayloadLen()
	payload := pkt.Payload()

	consumed := 0
	for _, f := range fields {
		if consumed >= declared {
			break
		}
		width := f.Words * WordSize
		if consumed+width > len(payload) {
			return NewMaskMismatchError(declared, consumed+width)
		}
		if f.Decode != nil {
			f.Decode(payload[consumed : consumed+width])
		}
		consumed += width
	}

	if consumed != declared {
		return NewMaskMismatchError(declared, consumed)
	}
	return nil
}

// Int16s decodes b as consecutive big-endian signed 16-bit words. A trailing
// odd byte is ignored.
func Int16s(b []byte) []int16 {
	out := make([]int16, len(b)/WordSize)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(b[i*WordSize:]))
	}
	return out
}
