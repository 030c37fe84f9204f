package protocol

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind represents the category of protocol error that occurred
type ErrorKind int

const (
	// KindChecksumMismatch indicates a received packet failed verification
	KindChecksumMismatch ErrorKind = iota
	// KindUnknownSequence indicates a sync response matched no pending request
	KindUnknownSequence
	// KindUnknownAsyncType indicates an async message with an unrecognized type
	KindUnknownAsyncType
	// KindDuplicateSequence indicates a request registered a sequence that is still pending
	KindDuplicateSequence
	// KindTimeout indicates no matching response arrived in time
	KindTimeout
	// KindMaskMismatch indicates the active field list disagrees with a sensor packet's length
	KindMaskMismatch
	// KindPayloadTooLarge indicates a payload that does not fit the one-byte length field
	KindPayloadTooLarge
	// KindClosed indicates the correlator or session was closed while waiting
	KindClosed
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindChecksumMismatch:
		return "Checksum Mismatch"
	case KindUnknownSequence:
		return "Unknown Sequence"
	case KindUnknownAsyncType:
		return "Unknown Async Type"
	case KindDuplicateSequence:
		return "Duplicate Sequence"
	case KindTimeout:
		return "Timeout"
	case KindMaskMismatch:
		return "Mask Mismatch"
	case KindPayloadTooLarge:
		return "Payload Too Large"
	case KindClosed:
		return "Closed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrChecksumMismatch  = &ProtocolError{Kind: KindChecksumMismatch}
	ErrUnknownSequence   = &ProtocolError{Kind: KindUnknownSequence}
	ErrUnknownAsyncType  = &ProtocolError{Kind: KindUnknownAsyncType}
	ErrDuplicateSequence = &ProtocolError{Kind: KindDuplicateSequence}
	ErrTimeout           = &ProtocolError{Kind: KindTimeout}
	ErrMaskMismatch      = &ProtocolError{Kind: KindMaskMismatch}
	ErrPayloadTooLarge   = &ProtocolError{Kind: KindPayloadTooLarge}
	ErrClosed            = &ProtocolError{Kind: KindClosed}
)

// ProtocolError describes a failure in the protocol engine
type ProtocolError struct {
	Kind     ErrorKind // Category of error
	Message  string    // Human-readable error message
	Sequence int       // Sequence number involved, -1 when not applicable
	Err      error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is matches any ProtocolError of the same kind, so errors.Is(err, ErrTimeout)
// holds for every timeout regardless of message or sequence.
func (e *ProtocolError) Is(target error) bool {
	var pe *ProtocolError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Kind == e.Kind
}

// NewTimeoutError creates a timeout error for the given sequence
func NewTimeoutError(seq byte, after time.Duration) *ProtocolError {
	return &ProtocolError{
		Kind:     KindTimeout,
		Message:  fmt.Sprintf("no response for sequence %d after %v", seq, after),
		Sequence: int(seq),
	}
}

// NewDuplicateSequenceError creates an error for a sequence that is already pending
func NewDuplicateSequenceError(seq byte) *ProtocolError {
	return &ProtocolError{
		Kind:     KindDuplicateSequence,
		Message:  fmt.Sprintf("sequence %d already has a pending request", seq),
		Sequence: int(seq),
	}
}

// NewMaskMismatchError reports a sensor packet whose declared data length
// disagrees with the bytes consumed by the active field list.
func NewMaskMismatchError(declared, consumed int) *ProtocolError {
	return &ProtocolError{
		Kind:     KindMaskMismatch,
		Message:  fmt.Sprintf("declared %d data bytes, active fields consumed %d", declared, consumed),
		Sequence: -1,
	}
}

// NewPayloadTooLargeError creates an error for an oversized payload
func NewPayloadTooLargeError(n int) *ProtocolError {
	return &ProtocolError{
		Kind:     KindPayloadTooLarge,
		Message:  fmt.Sprintf("%d bytes (max %d)", n, MaxPayloadSize),
		Sequence: -1,
	}
}

// NewClosedError creates an error for a wait interrupted by Close
func NewClosedError(seq byte) *ProtocolError {
	return &ProtocolError{
		Kind:     KindClosed,
		Message:  fmt.Sprintf("correlator closed while waiting for sequence %d", seq),
		Sequence: int(seq),
	}
}

// IsTimeout checks if an error is a response timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsMaskMismatch checks if an error is a demultiplexer mask mismatch
func IsMaskMismatch(err error) bool {
	return errors.Is(err, ErrMaskMismatch)
}
