package protocol

import "fmt"

// Checksum computes the protocol checksum over b: the low byte of the sum
// of every byte, inverted.
func Checksum(b []byte) byte {
	var sum uint32
	for _, v := range b {
		sum += uint32(v)
	}
	return ^byte(sum)
}

// Encode builds an outbound packet.
//
// Packet Structure:
//
//	[0]     0xFF           SOP1
//	[1]     sop2           SOP2Sync (acknowledge) or SOP2Async (fire-and-forget)
//	[2]     did            Device ID
//	[3]     cid            Command ID
//	[4]     seq            Sequence number, echoed in the response
//	[5]     len(data)+1    DLEN, payload plus checksum
//	[6..]   data           Payload
//	[N-1]   checksum       Checksum of bytes [2..N-2]
//
// Outbound packets carry DID and CID in front of SEQ, so their header is one
// byte longer than an inbound response header.
func Encode(sop2, did, cid, seq byte, data []byte) ([]byte, error) {
	if len(data) > MaxPayloadSize {
		return nil, NewPayloadTooLargeError(len(data))
	}
	if sop2 != SOP2Sync && sop2 != SOP2Async {
		return nil, fmt.Errorf("invalid SOP2: 0x%02x", sop2)
	}

	packet := make([]byte, 0, 7+len(data))
	packet = append(packet, SOP1, sop2, did, cid, seq, byte(len(data)+ChecksumSize))
	packet = append(packet, data...)
	packet = append(packet, Checksum(packet[2:]))
	return packet, nil
}

// EncodeInbound builds a packet in the device-to-host layout: a synchronous
// response (sop2 SOP2Sync, code is the MRSP status, tag the echoed sequence)
// or an async message (sop2 SOP2Async, code is the message type). It is what
// the device side of a link produces and is used by simulated transports.
func EncodeInbound(sop2, code, tag byte, data []byte) ([]byte, error) {
	if len(data) > MaxPayloadSize {
		return nil, NewPayloadTooLargeError(len(data))
	}
	if sop2 != SOP2Sync && sop2 != SOP2Async {
		return nil, fmt.Errorf("invalid SOP2: 0x%02x", sop2)
	}

	packet := make([]byte, 0, MinPacketSize+len(data))
	packet = append(packet, SOP1, sop2, code, tag, byte(len(data)+ChecksumSize))
	packet = append(packet, data...)
	packet = append(packet, Checksum(packet[positionStatus:]))
	return packet, nil
}

// Verify reports whether b is a structurally complete inbound packet whose
// trailing byte matches the checksum of bytes [2 .. 5+dlen-2]. It never
// panics: a length field that would overrun b yields false.
func Verify(b []byte) bool {
	if len(b) < MinPacketSize {
		return false
	}
	dlen := int(b[positionDLen])
	if dlen < ChecksumSize {
		return false
	}
	end := HeaderSize + dlen // one past the checksum byte
	if end > len(b) {
		return false
	}
	return Checksum(b[positionStatus:end-1]) == b[end-1]
}

// VerifyCommand is Verify for outbound packets, whose DLEN sits at offset 5.
func VerifyCommand(b []byte) bool {
	if len(b) < 7 {
		return false
	}
	dlen := int(b[5])
	if dlen < ChecksumSize {
		return false
	}
	end := 6 + dlen
	if end > len(b) {
		return false
	}
	return Checksum(b[positionStatus:end-1]) == b[end-1]
}
