package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/mask"
	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"github.com/InnovationGarageLM/sphero-sprk/internal/transport"
	"go.uber.org/zap"
)

// DefaultTimeout is how long Send waits for a response
const DefaultTimeout = 2 * time.Second

var (
	// ErrNotConnected is returned when sending on a session that is not open
	ErrNotConnected = errors.New("session not connected")

	// ErrAlreadyOpen is returned by Open on an open session
	ErrAlreadyOpen = errors.New("session already open")
)

// State is the link state of a session
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// AsyncHandler receives async packets the session does not consume itself
type AsyncHandler func(pkt *protocol.Packet)

// OrbBasicHandler receives text printed by orbBasic programs
type OrbBasicHandler func(msg OrbBasicMessage)

// Stats counts traffic through a session
type Stats struct {
	Sent           uint64 `json:"sent"`
	Received       uint64 `json:"received"`
	Responses      uint64 `json:"responses"`
	AcksDropped    uint64 `json:"acks_dropped"`
	Unexpected     uint64 `json:"unexpected"`
	Timeouts       uint64 `json:"timeouts"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	SensorPackets  uint64 `json:"sensor_packets"`
	MaskMismatches uint64 `json:"mask_mismatches"`
	UnknownAsync   uint64 `json:"unknown_async"`
}

type counters struct {
	sent, received, responses, acksDropped, unexpected  atomic.Uint64
	timeouts, checksumErrors, sensorPackets, mismatches atomic.Uint64
	unknownAsync                                        atomic.Uint64
}

// Session drives one robot link. It owns the outbound command path, the
// inbound framer, the response correlator and the sensor subscriptions.
//
// Send may be called from any number of goroutines. Inbound bytes arrive on
// the transport's goroutine through OnTransportData.
type Session struct {
	transport transport.Transport
	masks     *mask.Accumulator
	timeout   time.Duration

	stateMu sync.Mutex
	state   State
	cancel  context.CancelFunc

	// writeMu serializes sequence assignment, registration and the write
	writeMu sync.Mutex
	seq     byte

	// deliveryMu serializes inbound processing
	deliveryMu sync.Mutex
	framer     *protocol.Framer
	corr       *protocol.Correlator

	subMu      sync.RWMutex
	decoders   map[string]func([]byte)
	active     []protocol.Field // replaced, never mutated
	streamRate int
	streaming  bool

	handlerMu    sync.RWMutex
	asyncHandler AsyncHandler
	orbHandler   OrbBasicHandler

	stats counters
}

// New creates a disconnected session over t. Group names in Subscribe are
// resolved in tables.
func New(t transport.Transport, tables *mask.Tables) *Session {
	return &Session{
		transport:  t,
		masks:      mask.NewAccumulator(tables),
		timeout:    DefaultTimeout,
		framer:     protocol.NewFramer(),
		corr:       protocol.NewCorrelator(),
		decoders:   make(map[string]func([]byte)),
		streamRate: DefaultStreamRate,
	}
}

// SetTimeout sets how long Send waits for a response
func (s *Session) SetTimeout(d time.Duration) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.timeout = d
}

// Timeout returns the response timeout
func (s *Session) Timeout() time.Duration {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.timeout
}

// Open starts inbound delivery. The session stays open until Close or until
// ctx is done.
func (s *Session) Open(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state == StateConnected {
		return ErrAlreadyOpen
	}

	linkCtx, cancel := context.WithCancel(ctx)
	if err := s.transport.Start(linkCtx, s.OnTransportData); err != nil {
		cancel()
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.cancel = cancel
	s.state = StateConnected
	logging.Info("Session opened")
	return nil
}

// Close wakes any waiting senders with protocol.ErrClosed and closes the
// transport.
func (s *Session) Close() error {
	s.stateMu.Lock()
	if s.state == StateDisconnected {
		s.stateMu.Unlock()
		return nil
	}
	s.state = StateDisconnected
	cancel := s.cancel
	s.cancel = nil
	s.stateMu.Unlock()

	s.corr.Close()
	err := s.transport.Close()
	if cancel != nil {
		cancel()
	}

	s.subMu.Lock()
	s.streaming = false
	s.subMu.Unlock()

	logging.Info("Session closed")
	return err
}

// State returns the link state
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Streaming reports whether sensor streaming was last enabled with a
// non-empty mask
func (s *Session) Streaming() bool {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return s.streaming
}

// StreamRate returns the rate set by the last UpdateStreaming
func (s *Session) StreamRate() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return s.streamRate
}

// Tables returns the configuration tables sensor group names resolve in
func (s *Session) Tables() *mask.Tables {
	return s.masks.Tables()
}

// Masks returns the accumulated streaming masks
func (s *Session) Masks() (uint32, uint32) {
	return s.masks.Masks()
}

// Send writes a command with a fresh sequence number. With expectResponse
// it blocks until the matching response arrives, the session timeout
// elapses, or ctx is done; otherwise it returns after the write with a nil
// Response.
//
// The write lock covers only sequence assignment, registration and the
// transport write, so several requests may be in flight at once.
func (s *Session) Send(ctx context.Context, cmd protocol.Command, payload []byte, expectResponse bool) (byte, *Response, error) {
	if s.State() != StateConnected {
		return 0, nil, ErrNotConnected
	}

	sop2 := byte(protocol.SOP2Async)
	if expectResponse {
		sop2 = protocol.SOP2Sync
	}

	s.writeMu.Lock()
	seq := s.seq
	s.seq++

	packet, err := protocol.Encode(sop2, cmd.DID, cmd.CID, seq, payload)
	if err != nil {
		s.writeMu.Unlock()
		return seq, nil, fmt.Errorf("%s: %w", cmd, err)
	}

	var w *protocol.Waiter
	if expectResponse {
		w, err = s.corr.Register(seq)
		if err != nil {
			s.writeMu.Unlock()
			return seq, nil, fmt.Errorf("%s: %w", cmd, err)
		}
	}

	logging.LogPacket("tx", packet)
	err = s.transport.Write(packet)
	s.writeMu.Unlock()

	if err != nil {
		if w != nil {
			s.corr.Cancel(w)
		}
		return seq, nil, fmt.Errorf("%s: write failed: %w", cmd, err)
	}
	s.stats.sent.Add(1)

	if !expectResponse {
		return seq, nil, nil
	}

	pkt, err := s.corr.Await(ctx, w, s.Timeout())
	if err != nil {
		if protocol.IsTimeout(err) {
			s.stats.timeouts.Add(1)
			logging.Warn("Command timed out",
				zap.String("command", cmd.String()),
				zap.Uint8("seq", seq),
			)
		}
		return seq, nil, fmt.Errorf("%s: %w", cmd, err)
	}

	return seq, &Response{Command: cmd, Sequence: seq, Packet: pkt}, nil
}

// OnTransportData feeds one inbound chunk through the framer and dispatches
// every complete packet. It is the transport's Receiver.
func (s *Session) OnTransportData(chunk []byte) {
	s.deliveryMu.Lock()
	defer s.deliveryMu.Unlock()

	for _, pkt := range s.framer.Feed(chunk) {
		s.dispatch(pkt)
	}
}

func (s *Session) dispatch(pkt *protocol.Packet) {
	s.stats.received.Add(1)
	logging.LogPacket("rx", pkt.Raw)

	if pkt.Raw[0] != protocol.SOP1 || !protocol.Verify(pkt.Raw) {
		s.stats.checksumErrors.Add(1)
		logging.Warn("Dropped packet",
			zap.String("hex", logging.HexDump(pkt.Raw)),
			zap.Error(protocol.ErrChecksumMismatch),
		)
		return
	}

	switch pkt.Class() {
	case protocol.ClassSync:
		switch s.corr.Resolve(pkt) {
		case protocol.OutcomeMatched:
			s.stats.responses.Add(1)
		case protocol.OutcomeAckDropped:
			s.stats.acksDropped.Add(1)
		case protocol.OutcomeUnexpected:
			s.stats.unexpected.Add(1)
		}

	case protocol.ClassAsync:
		s.dispatchAsync(pkt)

	default:
		logging.Warn("Dropped packet with unknown SOP2",
			zap.String("sop2", fmt.Sprintf("0x%02x", pkt.SOP2())),
			zap.String("hex", logging.HexDump(pkt.Raw)),
		)
	}
}

func (s *Session) dispatchAsync(pkt *protocol.Packet) {
	switch pkt.AsyncType() {
	case protocol.AsyncSensorData:
		s.stats.sensorPackets.Add(1)

		s.subMu.RLock()
		fields := s.active
		s.subMu.RUnlock()

		if err := protocol.Demux(fields, pkt); err != nil {
			s.stats.mismatches.Add(1)
			logging.Error("Sensor data does not match active groups",
				zap.Int("declared", pkt.PayloadLen()),
				zap.Int("groups", len(fields)),
				zap.Error(err),
			)
		}

	case protocol.AsyncOrbBasicError, protocol.AsyncOrbBasicMessage:
		s.handlerMu.RLock()
		orb, async := s.orbHandler, s.asyncHandler
		s.handlerMu.RUnlock()

		msg := OrbBasicMessage{
			Error: pkt.AsyncType() == protocol.AsyncOrbBasicError,
			Text:  string(bytes.TrimRight(pkt.Payload(), "\x00")),
		}
		switch {
		case orb != nil:
			orb(msg)
		case async != nil:
			async(pkt)
		default:
			logging.Info("orbBasic output",
				zap.Bool("error", msg.Error),
				zap.String("text", msg.Text),
			)
		}

	default:
		s.stats.unknownAsync.Add(1)
		logging.Warn("Unknown async message",
			zap.String("async_type", protocol.GetAsyncTypeName(pkt.AsyncType())),
			zap.String("hex", logging.HexDump(pkt.Raw)),
			zap.Error(protocol.ErrUnknownAsyncType),
		)

		s.handlerMu.RLock()
		async := s.asyncHandler
		s.handlerMu.RUnlock()
		if async != nil {
			async(pkt)
		}
	}
}

// SetAsyncHandler installs the catch-all for async packets
func (s *Session) SetAsyncHandler(h AsyncHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.asyncHandler = h
}

// SetOrbBasicHandler installs the receiver for orbBasic text
func (s *Session) SetOrbBasicHandler(h OrbBasicHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.orbHandler = h
}

// Subscribe enables a sensor group and routes its slice of every sensor
// packet to decode. The robot keeps streaming the old layout until
// UpdateStreaming sends the new masks.
func (s *Session) Subscribe(group string, decode func(data []byte)) error {
	if decode == nil {
		return fmt.Errorf("nil decoder for %q", group)
	}
	if _, ok := mask.Width(group); !ok {
		return fmt.Errorf("%w: %q has no stream position", mask.ErrUnknownGroup, group)
	}
	table, _, err := s.masks.Tables().Lookup(group)
	if err != nil {
		return err
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if err := s.masks.Enable(group, table); err != nil {
		return err
	}
	s.decoders[group] = decode
	s.active = mask.Order(s.decoders)
	return nil
}

// Unsubscribe disables a sensor group and drops its decoder
func (s *Session) Unsubscribe(group string) error {
	table, _, err := s.masks.Tables().Lookup(group)
	if err != nil {
		return err
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if err := s.masks.Disable(group, table); err != nil {
		return err
	}
	delete(s.decoders, group)
	s.active = mask.Order(s.decoders)
	return nil
}

// Subscriptions returns the subscribed groups in stream order
func (s *Session) Subscriptions() []string {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	names := make([]string, len(s.active))
	for i, f := range s.active {
		names[i] = f.Name
	}
	return names
}

// UpdateStreaming sends the accumulated masks to the robot at rate Hz and
// waits for it to acknowledge.
func (s *Session) UpdateStreaming(ctx context.Context, rate int) error {
	mask1, mask2 := s.masks.Masks()
	if err := s.sendStreaming(ctx, rate, mask1, mask2); err != nil {
		return err
	}

	s.subMu.Lock()
	s.streamRate = rate
	s.streaming = mask1 != 0 || mask2 != 0
	s.subMu.Unlock()

	logging.Info("Streaming updated",
		zap.Int("rate", rate),
		zap.String("mask1", fmt.Sprintf("0x%08x", mask1)),
		zap.String("mask2", fmt.Sprintf("0x%08x", mask2)),
	)
	return nil
}

// StopStreaming tells the robot to stop streaming. Subscriptions are kept,
// so a later UpdateStreaming resumes them.
func (s *Session) StopStreaming(ctx context.Context) error {
	if err := s.sendStreaming(ctx, s.StreamRate(), 0, 0); err != nil {
		return err
	}

	s.subMu.Lock()
	s.streaming = false
	s.subMu.Unlock()

	logging.Info("Streaming stopped")
	return nil
}

func (s *Session) sendStreaming(ctx context.Context, rate int, mask1, mask2 uint32) error {
	payload, err := EncodeStreaming(rate, 1, mask1, mask2)
	if err != nil {
		return err
	}

	_, resp, err := s.Send(ctx, protocol.CmdSetDataStreaming, payload, true)
	if err != nil {
		return err
	}
	return resp.Err()
}

// Pending returns the number of commands awaiting a response
func (s *Session) Pending() int {
	return s.corr.Pending()
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		Sent:           s.stats.sent.Load(),
		Received:       s.stats.received.Load(),
		Responses:      s.stats.responses.Load(),
		AcksDropped:    s.stats.acksDropped.Load(),
		Unexpected:     s.stats.unexpected.Load(),
		Timeouts:       s.stats.timeouts.Load(),
		ChecksumErrors: s.stats.checksumErrors.Load(),
		SensorPackets:  s.stats.sensorPackets.Load(),
		MaskMismatches: s.stats.mismatches.Load(),
		UnknownAsync:   s.stats.unknownAsync.Load(),
	}
}
