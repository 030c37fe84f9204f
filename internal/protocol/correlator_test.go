package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncPacket(t *testing.T, status, seq byte, data []byte) *Packet {
	t.Helper()
	p, err := ParsePacket(mustInbound(t, SOP2Sync, status, seq, data))
	require.NoError(t, err)
	return p
}

func TestCorrelator_ResolveUnblocksAwait(t *testing.T) {
	c := NewCorrelator()
	w, err := c.Register(0x10)
	require.NoError(t, err)

	want := syncPacket(t, StatusOK, 0x10, []byte{0x01, 0x02})

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Resolve(want)
	}()

	got, err := c.Await(context.Background(), w, time.Second)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_ResolveBeforeAwait(t *testing.T) {
	c := NewCorrelator()
	w, err := c.Register(0x01)
	require.NoError(t, err)

	pkt := syncPacket(t, StatusOK, 0x01, nil)
	assert.Equal(t, OutcomeMatched, c.Resolve(pkt))

	got, err := c.Await(context.Background(), w, time.Second)
	require.NoError(t, err)
	assert.Same(t, pkt, got)
}

func TestCorrelator_OutOfOrderResponses(t *testing.T) {
	c := NewCorrelator()
	w1, err := c.Register(1)
	require.NoError(t, err)
	w2, err := c.Register(2)
	require.NoError(t, err)

	p2 := syncPacket(t, StatusOK, 2, []byte{0x22})
	p1 := syncPacket(t, StatusOK, 1, []byte{0x11})
	c.Resolve(p2)
	c.Resolve(p1)

	got1, err := c.Await(context.Background(), w1, time.Second)
	require.NoError(t, err)
	got2, err := c.Await(context.Background(), w2, time.Second)
	require.NoError(t, err)

	assert.Same(t, p1, got1)
	assert.Same(t, p2, got2)
}

func TestCorrelator_ResolveUnregistered(t *testing.T) {
	tests := []struct {
		name string
		pkt  func(t *testing.T) *Packet
		want Outcome
	}{
		{
			name: "simple OK ack is dropped",
			pkt:  func(t *testing.T) *Packet { return syncPacket(t, StatusOK, 0x05, nil) },
			want: OutcomeAckDropped,
		},
		{
			name: "error status is unexpected",
			pkt:  func(t *testing.T) *Packet { return syncPacket(t, StatusUnknownCommand, 0x05, nil) },
			want: OutcomeUnexpected,
		},
		{
			name: "response with payload is unexpected",
			pkt:  func(t *testing.T) *Packet { return syncPacket(t, StatusOK, 0x05, []byte{0x01}) },
			want: OutcomeUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCorrelator()
			other, err := c.Register(0x06)
			require.NoError(t, err)

			assert.Equal(t, tt.want, c.Resolve(tt.pkt(t)))
			assert.Equal(t, 1, c.Pending())

			select {
			case <-other.ch:
				t.Fatal("unrelated waiter was woken")
			default:
			}
		})
	}
}

func TestCorrelator_DuplicateSequence(t *testing.T) {
	c := NewCorrelator()
	_, err := c.Register(0x00)
	require.NoError(t, err)

	_, err = c.Register(0x00)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSequence))
	assert.Equal(t, 1, c.Pending())
}

func TestCorrelator_TimeoutRemovesSlot(t *testing.T) {
	c := NewCorrelator()
	w, err := c.Register(0x42)
	require.NoError(t, err)

	_, err = c.Await(context.Background(), w, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 0, c.Pending())

	// A late response is not accepted for the removed slot
	late := syncPacket(t, StatusOK, 0x42, []byte{0x01})
	assert.Equal(t, OutcomeUnexpected, c.Resolve(late))

	select {
	case <-w.ch:
		t.Fatal("timed-out waiter received a late packet")
	default:
	}

	// The sequence can be reused once the slot is gone
	w2, err := c.Register(0x42)
	require.NoError(t, err)
	assert.NotSame(t, w, w2)
}

func TestCorrelator_StaleWaiterDoesNotRemoveReusedSlot(t *testing.T) {
	c := NewCorrelator()
	stale, err := c.Register(0x07)
	require.NoError(t, err)
	c.Cancel(stale)

	fresh, err := c.Register(0x07)
	require.NoError(t, err)

	// Cancelling the stale handle again must leave the new registration alone
	c.Cancel(stale)
	assert.Equal(t, 1, c.Pending())

	pkt := syncPacket(t, StatusOK, 0x07, nil)
	assert.Equal(t, OutcomeMatched, c.Resolve(pkt))

	got, err := c.Await(context.Background(), fresh, time.Second)
	require.NoError(t, err)
	assert.Same(t, pkt, got)
}

func TestCorrelator_ContextCancel(t *testing.T) {
	c := NewCorrelator()
	w, err := c.Register(0x03)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = c.Await(ctx, w, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_Close(t *testing.T) {
	c := NewCorrelator()
	w, err := c.Register(0x01)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Await(context.Background(), w, 0)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()
	c.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Await did not return after Close")
	}

	_, err = c.Register(0x02)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCorrelator_ConcurrentWaiters(t *testing.T) {
	c := NewCorrelator()
	const n = 64

	waiters := make([]*Waiter, n)
	for i := range waiters {
		w, err := c.Register(byte(i))
		require.NoError(t, err)
		waiters[i] = w
	}

	var wg sync.WaitGroup
	results := make([]*Packet, n)
	errs := make([]error, n)
	for i := range waiters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Await(context.Background(), waiters[i], 2*time.Second)
		}(i)
	}

	for i := n - 1; i >= 0; i-- {
		c.Resolve(syncPacket(t, StatusOK, byte(i), []byte{byte(i)}))
	}
	wg.Wait()

	for i := range waiters {
		require.NoError(t, errs[i])
		assert.Equal(t, byte(i), results[i].Sequence())
		assert.Equal(t, []byte{byte(i)}, results[i].Payload())
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "matched", OutcomeMatched.String())
	assert.Equal(t, "ack-dropped", OutcomeAckDropped.String())
	assert.Equal(t, "unexpected", OutcomeUnexpected.String())
}
