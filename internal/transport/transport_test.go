package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"tinygo.org/x/bluetooth"
)

var _ Characteristic = (*bluetooth.DeviceCharacteristic)(nil)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{
			name: "defaults",
			in:   PortOptions{},
			want: PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
		},
		{
			name: "long parity name",
			in:   PortOptions{BaudRate: 9600, Parity: " even "},
			want: PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"},
		},
		{name: "bad data bits", in: PortOptions{DataBits: 9}, wantErr: true},
		{name: "bad stop bits", in: PortOptions{StopBits: 3}, wantErr: true},
		{name: "bad parity", in: PortOptions{Parity: "mark"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, mode.BaudRate)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.OddParity, mode.Parity)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
}

// pipePort is an in-memory serial port: reads come from the pipe, writes are
// captured.
type pipePort struct {
	*io.PipeReader
	mu     sync.Mutex
	out    bytes.Buffer
	writer *io.PipeWriter
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{PipeReader: r, writer: w}
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipePort) Close() error {
	p.writer.Close()
	return p.PipeReader.Close()
}

func (p *pipePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.out.Bytes()...)
}

// collector gathers delivered chunks
type collector struct {
	mu   sync.Mutex
	data []byte
}

func (c *collector) recv(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, chunk...)
}

func (c *collector) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

func TestSerial_ReadWrite(t *testing.T) {
	port := newPipePort()
	s := NewSerial(port)

	var got collector
	require.NoError(t, s.Start(context.Background(), got.recv))

	go port.writer.Write([]byte{0xFF, 0xFF, 0x00, 0x01, 0x01, 0xFD})
	assert.Eventually(t, func() bool {
		return len(got.bytes()) == 6
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Write([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x01, 0x02}, port.written())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write([]byte{0x03}), ErrClosed)
}

func TestSerial_ContextCancelCloses(t *testing.T) {
	port := newPipePort()
	s := NewSerial(port)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func([]byte) {}))
	cancel()

	assert.Eventually(t, func() bool {
		return errors.Is(s.Write([]byte{0x00}), ErrClosed)
	}, time.Second, 5*time.Millisecond)
}

// fakeChar records writes and captures the notification callback
type fakeChar struct {
	mu      sync.Mutex
	writes  [][]byte
	notify  func([]byte)
	failErr error
}

func (f *fakeChar) WriteWithoutResponse(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeChar) EnableNotifications(cb func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notify = cb
	return nil
}

func TestUnlock(t *testing.T) {
	antiDOS, tx, wake := &fakeChar{}, &fakeChar{}, &fakeChar{}
	require.NoError(t, Unlock(antiDOS, tx, wake))

	assert.Equal(t, [][]byte{[]byte("011i3")}, antiDOS.writes)
	assert.Equal(t, [][]byte{{7}}, tx.writes)
	assert.Equal(t, [][]byte{{1}}, wake.writes)

	failing := &fakeChar{failErr: errors.New("gatt error")}
	assert.Error(t, Unlock(antiDOS, failing, wake))
}

func TestBLE_StartWriteClose(t *testing.T) {
	cmds, resp := &fakeChar{}, &fakeChar{}
	disconnected := false
	b := NewBLE(cmds, resp, func() error {
		disconnected = true
		return nil
	})

	var got collector
	require.NoError(t, b.Start(context.Background(), got.recv))
	require.NotNil(t, resp.notify)

	buf := []byte{0xFF, 0xFE}
	resp.notify(buf)
	buf[0] = 0x00 // the transport must have copied the notification buffer
	assert.Equal(t, []byte{0xFF, 0xFE}, got.bytes())

	require.NoError(t, b.Write([]byte{0xAA}))
	assert.Equal(t, [][]byte{{0xAA}}, cmds.writes)

	require.NoError(t, b.Close())
	assert.True(t, disconnected)
	assert.ErrorIs(t, b.Write([]byte{0xBB}), ErrClosed)

	resp.notify([]byte{0x01})
	assert.Equal(t, []byte{0xFF, 0xFE}, got.bytes(), "no delivery after close")
}

func TestIsRobotName(t *testing.T) {
	assert.True(t, IsRobotName("SK-1234"))
	assert.True(t, IsRobotName("BB-8A2C"))
	assert.False(t, IsRobotName("SFP-Wizard"))
	assert.False(t, IsRobotName(""))
}

func TestSplit(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	assert.Equal(t, [][]byte{{1, 2}, {3, 4}, {5}}, Split(b, 2))
	assert.Equal(t, [][]byte{{1, 2, 3, 4, 5}}, Split(b, 0))
	assert.Equal(t, [][]byte{{1, 2, 3, 4, 5}}, Split(b, 20))
}

func TestMock_AckResponder(t *testing.T) {
	m := NewMock()
	m.SetResponder(AckResponder(3, func(did, cid byte, payload []byte) []byte {
		return []byte{did, cid}
	}))

	var got collector
	require.NoError(t, m.Start(context.Background(), got.recv))
	defer m.Close()

	cmd, err := protocol.Encode(protocol.SOP2Sync, 0x00, 0x02, 0x09, nil)
	require.NoError(t, err)
	require.NoError(t, m.Write(cmd))

	want, err := protocol.EncodeInbound(protocol.SOP2Sync, protocol.StatusOK, 0x09, []byte{0x00, 0x02})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return bytes.Equal(got.bytes(), want)
	}, time.Second, 5*time.Millisecond)

	// fire-and-forget commands get no reply
	cmd, err = protocol.Encode(protocol.SOP2Async, 0x02, 0x30, 0x0A, []byte{0x00})
	require.NoError(t, err)
	require.NoError(t, m.Write(cmd))

	assert.Len(t, m.Writes(), 2)
}

func TestMock_FailWritesAndClose(t *testing.T) {
	m := NewMock()
	boom := errors.New("link down")
	m.FailWrites(boom)
	assert.ErrorIs(t, m.Write([]byte{0x00}), boom)
	assert.Empty(t, m.Writes())

	m.FailWrites(nil)
	require.NoError(t, m.Write([]byte{0x00}))

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Write([]byte{0x00}), ErrClosed)
	assert.ErrorIs(t, m.Start(context.Background(), func([]byte) {}), ErrClosed)
}

func TestMock_Deliver(t *testing.T) {
	m := NewMock()
	var got collector
	require.NoError(t, m.Start(context.Background(), got.recv))
	defer m.Close()

	m.Deliver([]byte{0x01, 0x02})
	assert.Equal(t, []byte{0x01, 0x02}, got.bytes())
}
