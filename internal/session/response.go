package session

import (
	"fmt"

	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
)

// Response is the synchronous reply to a command
type Response struct {
	Command  protocol.Command
	Sequence byte
	Packet   *protocol.Packet
}

// Status returns the MRSP code
func (r *Response) Status() byte {
	return r.Packet.Status()
}

// Payload returns the response data without header or checksum
func (r *Response) Payload() []byte {
	return r.Packet.Payload()
}

// OK reports whether the robot accepted the command
func (r *Response) OK() bool {
	return r.Packet.Status() == protocol.StatusOK
}

// Simple reports whether the reply is a bare acknowledgement: six bytes,
// MRSP OK, no data
func (r *Response) Simple() bool {
	return r.Packet.IsSimpleResponse()
}

// Err returns a *StatusError when the robot rejected the command
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Command: r.Command, Status: r.Status()}
}

// StatusError reports a command the robot answered with a non-OK MRSP code
type StatusError struct {
	Command protocol.Command
	Status  byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Command, protocol.GetStatusName(e.Status))
}

// OrbBasicMessage is console or error text printed by a running orbBasic
// program
type OrbBasicMessage struct {
	Error bool   `json:"error"`
	Text  string `json:"text"`
}
