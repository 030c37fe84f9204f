package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned when writing to a closed transport
var ErrClosed = errors.New("transport closed")

// Receiver is called with each chunk of inbound bytes, in arrival order.
// Chunks may split or join packets arbitrarily. The slice is owned by the
// receiver once passed.
type Receiver func(chunk []byte)

// Transport is a bidirectional byte link to a robot.
type Transport interface {
	// Start begins delivering inbound bytes to recv. Delivery may happen on
	// any goroutine and continues until Close or ctx is done.
	Start(ctx context.Context, recv Receiver) error

	// Write sends one complete outbound packet.
	Write(p []byte) error

	// Close releases the link. Further writes fail with ErrClosed.
	Close() error
}
