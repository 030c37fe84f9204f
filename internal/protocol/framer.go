package protocol

// Framer reassembles packets from arbitrarily split transport chunks.
//
// Framing is purely length-prefixed: the 5-byte header's DLEN decides where a
// packet ends, and the buffer is only advanced past structurally complete
// packets. A header whose DLEN claims more bytes than have arrived simply
// waits for more data.
//
// A Framer is not safe for concurrent use. Session serializes calls to Feed
// on its delivery path.
type Framer struct {
	buf []byte
}

// NewFramer creates an empty framer
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the internal buffer and returns every complete
// packet now available, in arrival order. Trailing bytes that do not yet form
// a packet are retained for the next call.
func (f *Framer) Feed(chunk []byte) []*Packet {
	f.buf = append(f.buf, chunk...)

	var packets []*Packet
	off := 0
	for len(f.buf)-off >= HeaderSize {
		total := HeaderSize + int(f.buf[off+positionDLen])
		if len(f.buf)-off < total {
			break
		}
		raw := make([]byte, total)
		copy(raw, f.buf[off:off+total])
		packets = append(packets, &Packet{Raw: raw})
		off += total
	}

	if off > 0 {
		f.compact(off)
	}
	return packets
}

// compact drops the first n consumed bytes, reusing the backing array
func (f *Framer) compact(n int) {
	remaining := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:remaining]
}

// Buffered returns the number of bytes held waiting for a complete packet
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any buffered partial packet
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
