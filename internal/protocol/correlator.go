package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"go.uber.org/zap"
)

// Outcome reports what Resolve did with a synchronous packet
type Outcome int

const (
	// OutcomeMatched means a pending waiter received the packet
	OutcomeMatched Outcome = iota
	// OutcomeAckDropped means no waiter existed and the packet was a plain
	// OK acknowledgement of a fire-and-forget command
	OutcomeAckDropped
	// OutcomeUnexpected means no waiter existed for the sequence
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeAckDropped:
		return "ack-dropped"
	case OutcomeUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Waiter is the handle for one outstanding request
type Waiter struct {
	seq byte
	ch  chan *Packet
}

// Sequence returns the sequence number the waiter is registered under
func (w *Waiter) Sequence() byte { return w.seq }

// Correlator matches synchronous responses to outstanding requests by
// sequence number. Each registered slot is consumed exactly once: by a
// matching response, by timeout, by cancellation, or by Close.
type Correlator struct {
	mu      sync.Mutex
	pending map[byte]*Waiter
	closed  bool
	done    chan struct{}
}

// NewCorrelator creates an empty correlator
func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[byte]*Waiter),
		done:    make(chan struct{}),
	}
}

// Register allocates a pending slot for seq. It fails with
// ErrDuplicateSequence if seq is still outstanding.
func (c *Correlator) Register(seq byte) (*Waiter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, NewClosedError(seq)
	}
	if _, exists := c.pending[seq]; exists {
		return nil, NewDuplicateSequenceError(seq)
	}

	w := &Waiter{seq: seq, ch: make(chan *Packet, 1)}
	c.pending[seq] = w
	return w, nil
}

// Resolve hands a synchronous packet to the waiter registered under its
// sequence number. The slot is removed before the waiter is woken, so a
// second packet with the same sequence is never delivered to it.
func (c *Correlator) Resolve(pkt *Packet) Outcome {
	seq := pkt.Sequence()

	c.mu.Lock()
	w, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
		w.ch <- pkt
	}
	c.mu.Unlock()

	if ok {
		return OutcomeMatched
	}

	if pkt.IsSimpleResponse() {
		logging.Debug("Dropped acknowledgement with no pending request",
			zap.Uint8("seq", seq),
		)
		return OutcomeAckDropped
	}

	logging.Warn("Unexpected response",
		zap.Uint8("seq", seq),
		zap.String("status", GetStatusName(pkt.Status())),
		zap.Int("length", len(pkt.Raw)),
		zap.Error(ErrUnknownSequence),
	)
	return OutcomeUnexpected
}

// Await blocks until the waiter's response arrives, timeout elapses, ctx is
// done, or the correlator is closed. A timeout of zero or less waits on ctx
// alone. On every path other than a response the slot is removed, so a late
// packet for the same sequence is reported as unexpected.
func (c *Correlator) Await(ctx context.Context, w *Waiter, timeout time.Duration) (*Packet, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case pkt := <-w.ch:
		return pkt, nil
	case <-expired:
		if pkt, ok := c.abandon(w); ok {
			return pkt, nil
		}
		return nil, NewTimeoutError(w.seq, timeout)
	case <-ctx.Done():
		if pkt, ok := c.abandon(w); ok {
			return pkt, nil
		}
		return nil, ctx.Err()
	case <-c.done:
		if pkt, ok := c.abandon(w); ok {
			return pkt, nil
		}
		return nil, NewClosedError(w.seq)
	}
}

// abandon removes w's slot. If a response won the race and was already
// handed over, it is returned instead.
func (c *Correlator) abandon(w *Waiter) (*Packet, bool) {
	if c.remove(w) {
		return nil, false
	}
	select {
	case pkt := <-w.ch:
		return pkt, true
	default:
		return nil, false
	}
}

// Cancel removes w's slot without waiting. It is a no-op if the slot was
// already resolved or removed.
func (c *Correlator) Cancel(w *Waiter) {
	c.remove(w)
}

// remove deletes the slot for w only if it still belongs to w, so a newer
// registration that reused the sequence number is left alone.
func (c *Correlator) remove(w *Waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.pending[w.seq]; ok && cur == w {
		delete(c.pending, w.seq)
		return true
	}
	return false
}

// Pending returns the number of outstanding requests
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close wakes every waiter with ErrClosed and rejects further registrations.
// It is safe to call more than once.
func (c *Correlator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.pending = make(map[byte]*Waiter)
	close(c.done)
}
