package protocol

import (
	"fmt"
)

// Start-of-packet markers
const (
	SOP1 = 0xFF

	// SOP2Sync marks a request that wants an acknowledgement (outbound) or a
	// synchronous response (inbound).
	SOP2Sync = 0xFF

	// SOP2Async marks a fire-and-forget request (outbound) or an asynchronous
	// message (inbound).
	SOP2Async = 0xFE
)

// Wire layout
const (
	HeaderSize     = 5   // SOP1 SOP2 status/type seq/tag dlen
	ChecksumSize   = 1   // trailing checksum byte
	MinPacketSize  = 6   // header + checksum, empty payload
	MaxPayloadSize = 254 // dlen is one byte and counts the checksum

	positionSOP1   = 0
	positionSOP2   = 1
	positionStatus = 2
	positionSeq    = 3
	positionDLen   = 4
)

// Async message types (offset 2 when SOP2 is SOP2Async)
const (
	AsyncSensorData      = 0x03
	AsyncOrbBasicError   = 0x09
	AsyncOrbBasicMessage = 0x0A
)

// MRSP status codes carried by synchronous responses
const (
	StatusOK               = 0x00
	StatusGeneralError     = 0x01
	StatusChecksumFailure  = 0x02
	StatusFragmentReceived = 0x03
	StatusUnknownCommand   = 0x04
	StatusCommandUnsupport = 0x05
	StatusBadMessageFormat = 0x06
	StatusInvalidParameter = 0x07
	StatusExecutionFailed  = 0x08
	StatusUnknownDevice    = 0x09
	StatusVoltageTooLow    = 0x31
	StatusIllegalPage      = 0x32
	StatusFlashFail        = 0x33
	StatusMainAppCorrupt   = 0x34
	StatusMessageTimeout   = 0x35
)

// Class distinguishes inbound synchronous responses from async messages
type Class int

const (
	ClassUnknown Class = iota
	ClassSync
	ClassAsync
)

func (c Class) String() string {
	switch c {
	case ClassSync:
		return "sync"
	case ClassAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Packet is one complete wire packet. It is immutable once built; Raw owns
// its bytes and never aliases a framer buffer.
type Packet struct {
	Raw []byte
}

// ParsePacket wraps b as a Packet after checking the declared length
// matches len(b). The checksum is not verified; use Verify for that.
func ParsePacket(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes (minimum %d)", len(b), HeaderSize)
	}
	if b[positionSOP1] != SOP1 {
		return nil, fmt.Errorf("invalid SOP1: 0x%02x (expected 0x%02x)", b[positionSOP1], SOP1)
	}
	want := HeaderSize + int(b[positionDLen])
	if len(b) != want {
		return nil, fmt.Errorf("packet length %d does not match declared length %d", len(b), want)
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	return &Packet{Raw: raw}, nil
}

// SOP2 returns the second start byte
func (p *Packet) SOP2() byte { return p.Raw[positionSOP2] }

// Class reports whether the packet is a sync response or an async message
func (p *Packet) Class() Class {
	switch p.SOP2() {
	case SOP2Sync:
		return ClassSync
	case SOP2Async:
		return ClassAsync
	default:
		return ClassUnknown
	}
}

// Status is the MRSP code of a sync response (offset 2)
func (p *Packet) Status() byte { return p.Raw[positionStatus] }

// AsyncType is the async message type of an async packet (offset 2)
func (p *Packet) AsyncType() byte { return p.Raw[positionStatus] }

// Sequence is the echoed sequence number of a sync response (offset 3)
func (p *Packet) Sequence() byte { return p.Raw[positionSeq] }

// SubTag is offset 3 of an async packet
func (p *Packet) SubTag() byte { return p.Raw[positionSeq] }

// DataLen is the declared length of payload plus checksum
func (p *Packet) DataLen() int { return int(p.Raw[positionDLen]) }

// PayloadLen is the declared payload length without the checksum.
func (p *Packet) PayloadLen() int {
	if p.DataLen() == 0 {
		return 0
	}
	return p.DataLen() - ChecksumSize
}

// Payload returns the bytes between the header and the checksum.
func (p *Packet) Payload() []byte {
	end := HeaderSize + p.PayloadLen()
	if end > len(p.Raw) {
		end = len(p.Raw)
	}
	return p.Raw[HeaderSize:end]
}

// Checksum returns the trailing checksum byte, or 0 for a packet with dlen 0
func (p *Packet) Checksum() byte {
	if p.DataLen() == 0 {
		return 0
	}
	return p.Raw[len(p.Raw)-1]
}

// IsSimpleResponse reports a minimal sync acknowledgement: six bytes, no
// payload, MRSP OK.
func (p *Packet) IsSimpleResponse() bool {
	return len(p.Raw) == MinPacketSize && p.Class() == ClassSync && p.Status() == StatusOK
}

// String returns a debug representation of the packet
func (p *Packet) String() string {
	switch p.Class() {
	case ClassSync:
		return fmt.Sprintf("Packet{sync, status=%s, seq=%d, dlen=%d}",
			GetStatusName(p.Status()), p.Sequence(), p.DataLen())
	case ClassAsync:
		return fmt.Sprintf("Packet{async, type=%s, dlen=%d}",
			GetAsyncTypeName(p.AsyncType()), p.DataLen())
	default:
		return fmt.Sprintf("Packet{sop2=0x%02x, len=%d}", p.SOP2(), len(p.Raw))
	}
}

// GetAsyncTypeName returns a human-readable name for an async message type
func GetAsyncTypeName(t byte) string {
	switch t {
	case AsyncSensorData:
		return "SensorData"
	case AsyncOrbBasicError:
		return "OrbBasicError"
	case AsyncOrbBasicMessage:
		return "OrbBasicMessage"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", t)
	}
}

// GetStatusName returns a human-readable name for an MRSP code
func GetStatusName(status byte) string {
	switch status {
	case StatusOK:
		return "OK"
	case StatusGeneralError:
		return "GeneralError"
	case StatusChecksumFailure:
		return "ChecksumFailure"
	case StatusFragmentReceived:
		return "FragmentReceived"
	case StatusUnknownCommand:
		return "UnknownCommand"
	case StatusCommandUnsupport:
		return "CommandUnsupported"
	case StatusBadMessageFormat:
		return "BadMessageFormat"
	case StatusInvalidParameter:
		return "InvalidParameter"
	case StatusExecutionFailed:
		return "ExecutionFailed"
	case StatusUnknownDevice:
		return "UnknownDevice"
	case StatusVoltageTooLow:
		return "VoltageTooLow"
	case StatusIllegalPage:
		return "IllegalPage"
	case StatusFlashFail:
		return "FlashFail"
	case StatusMainAppCorrupt:
		return "MainAppCorrupt"
	case StatusMessageTimeout:
		return "MessageTimeout"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", status)
	}
}
