package transport

import (
	"context"
	"sync"

	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
)

// Responder produces the inbound chunks a simulated robot sends back for one
// outbound packet. Returning nil sends nothing.
type Responder func(packet []byte) [][]byte

// Mock is an in-memory Transport for tests and offline use. Writes are
// recorded, and the optional Responder's chunks are delivered in order on a
// single background goroutine, as a real link's notification thread would.
type Mock struct {
	mu        sync.Mutex
	recv      Receiver
	writes    [][]byte
	responder Responder
	writeErr  error
	closed    bool

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewMock creates a mock link with no responder
func NewMock() *Mock {
	return &Mock{
		queue: make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

// SetResponder installs the function that answers outbound packets
func (m *Mock) SetResponder(r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
}

// FailWrites makes every subsequent Write return err. A nil err clears it.
func (m *Mock) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Start records recv and starts the delivery goroutine
func (m *Mock) Start(ctx context.Context, recv Receiver) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.recv = recv
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case chunk := <-m.queue:
				recv(chunk)
			case <-ctx.Done():
				return
			case <-m.done:
				return
			}
		}
	}()
	return nil
}

// Write records p and queues the responder's reply
func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	packet := append([]byte(nil), p...)
	m.writes = append(m.writes, packet)
	responder := m.responder
	m.mu.Unlock()

	if responder == nil {
		return nil
	}
	for _, chunk := range responder(packet) {
		select {
		case m.queue <- chunk:
		case <-m.done:
			return ErrClosed
		}
	}
	return nil
}

// Deliver hands chunk straight to the receiver on the calling goroutine
func (m *Mock) Deliver(chunk []byte) {
	m.mu.Lock()
	recv := m.recv
	m.mu.Unlock()
	if recv != nil {
		recv(chunk)
	}
}

// Writes returns a copy of every packet written so far
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Close stops delivery
func (m *Mock) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// Split cuts b into chunks of at most size bytes, the way a BLE link with a
// small MTU fragments notifications.
func Split(b []byte, size int) [][]byte {
	if size <= 0 {
		return [][]byte{b}
	}
	var chunks [][]byte
	for len(b) > size {
		chunks = append(chunks, b[:size])
		b = b[size:]
	}
	if len(b) > 0 {
		chunks = append(chunks, b)
	}
	return chunks
}

// AckResponder answers every command that asks for a response with an OK
// response echoing its sequence number. data, when non-nil, supplies the
// response payload for a command's DID and CID. Replies are split into
// chunkSize pieces.
func AckResponder(chunkSize int, data func(did, cid byte, payload []byte) []byte) Responder {
	return func(packet []byte) [][]byte {
		if len(packet) < 7 || packet[1] != protocol.SOP2Sync {
			return nil
		}
		did, cid, seq := packet[2], packet[3], packet[4]

		var body []byte
		if data != nil {
			body = data(did, cid, packet[6:len(packet)-1])
		}
		resp, err := protocol.EncodeInbound(protocol.SOP2Sync, protocol.StatusOK, seq, body)
		if err != nil {
			return nil
		}
		return Split(resp, chunkSize)
	}
}
