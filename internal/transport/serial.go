package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate is the rate of the robot's Bluetooth serial profile
const DefaultBaudRate = 115200

const readBufferSize = 256

// PortOptions describes the serial connection parameters used when opening
// a Bluetooth SPP/RFCOMM tty.
type PortOptions struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// SerialMode converts the options into the serial.Mode used to open a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// Serial is a Transport over a serial port. Reads run on a background
// goroutine; writes are serialized.
type Serial struct {
	port io.ReadWriteCloser

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
	done    chan struct{}

	wg sync.WaitGroup
}

// OpenSerial opens the tty at path with the given options
func OpenSerial(path string, opts PortOptions) (*Serial, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	logging.Info("Serial port opened",
		zap.String("path", path),
		zap.Int("baud", mode.BaudRate),
	)
	return NewSerial(port), nil
}

// NewSerial wraps an already open port
func NewSerial(port io.ReadWriteCloser) *Serial {
	return &Serial{port: port, done: make(chan struct{})}
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Start launches the read loop
func (s *Serial) Start(ctx context.Context, recv Receiver) error {
	if s.isClosed() {
		return ErrClosed
	}

	s.wg.Add(1)
	go s.readLoop(ctx, recv)

	// the blocking Read cannot observe ctx, so closing the port unblocks it
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return nil
}

func (s *Serial) readLoop(ctx context.Context, recv Receiver) {
	defer s.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			logging.LogRawBytes("Serial chunk", chunk)
			recv(chunk)
		}
		if err != nil {
			if !s.isClosed() && ctx.Err() == nil && !errors.Is(err, io.EOF) {
				logging.Error("Serial read failed", zap.Error(err))
			}
			return
		}
	}
}

// Write sends p in full
func (s *Serial) Write(p []byte) error {
	if s.isClosed() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("serial write: %w", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Close closes the port and waits for the read loop to exit
func (s *Serial) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.closeMu.Unlock()

	err := s.port.Close()
	s.wg.Wait()
	return err
}

func (s *Serial) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}
