package robot

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/InnovationGarageLM/sphero-sprk/internal/mask"
	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"github.com/InnovationGarageLM/sphero-sprk/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRobot answers queries the way firmware would
func fakeRobot(did, cid byte, _ []byte) []byte {
	switch protocol.LookupCommand(did, cid) {
	case protocol.CmdVersion:
		return []byte{0x02, 0x03, 0x01, 0x03, 0x10, 0x33}
	case protocol.CmdGetDeviceName:
		b := make([]byte, 31)
		copy(b, "Sphero-RGY")
		copy(b[16:], "68863b0d0c6a")
		copy(b[28:], "RGY")
		return b
	case protocol.CmdGetRGBLED:
		return []byte{0x10, 0x20, 0x30}
	}
	return nil
}

func newTestRobot(t *testing.T) (*Robot, *transport.Mock) {
	t.Helper()

	tables, err := mask.DefaultTables()
	require.NoError(t, err)

	link := transport.NewMock()
	link.SetResponder(transport.AckResponder(4, fakeRobot))

	s := session.New(link, tables)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { s.Close() })
	return New(s), link
}

// lastPayload returns the data bytes of the most recent outbound command
func lastPayload(t *testing.T, link *transport.Mock) (protocol.Command, []byte) {
	t.Helper()
	writes := link.Writes()
	require.NotEmpty(t, writes)
	pkt := writes[len(writes)-1]
	require.True(t, protocol.VerifyCommand(pkt))
	return protocol.LookupCommand(pkt[2], pkt[3]), pkt[6 : len(pkt)-1]
}

func TestRobot_Queries(t *testing.T) {
	r, _ := newTestRobot(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))

	v, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, &VersionInfo{RECV: 2, MDL: 3, HW: 1, MSAVersion: 3, MSARevision: 0x10, BL: 0x33}, v)

	dn, err := r.DeviceName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sphero-RGY", dn.Name)
	assert.Equal(t, "68863b0d0c6a", dn.BTA)
	assert.Equal(t, "RGY", dn.Color)

	c, err := r.GetRGBLED(ctx)
	require.NoError(t, err)
	assert.Equal(t, Color{0x10, 0x20, 0x30}, c)
}

func TestRobot_Payloads(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func(r *Robot) error
		cmd     protocol.Command
		payload []byte
	}{
		{
			name:    "roll",
			call:    func(r *Robot) error { return r.Roll(ctx, 0x80, 270, true) },
			cmd:     protocol.CmdRoll,
			payload: []byte{0x80, 0x01, 0x0E, 0x01},
		},
		{
			name:    "stop",
			call:    func(r *Robot) error { return r.Stop(ctx, false) },
			cmd:     protocol.CmdRoll,
			payload: []byte{0x00, 0x00, 0x00, 0x01},
		},
		{
			name:    "heading",
			call:    func(r *Robot) error { return r.SetHeading(ctx, 300, true) },
			cmd:     protocol.CmdSetHeading,
			payload: []byte{0x01, 0x2C},
		},
		{
			name:    "stabilization off",
			call:    func(r *Robot) error { return r.SetStabilization(ctx, false, true) },
			cmd:     protocol.CmdSetStabilization,
			payload: []byte{0x00},
		},
		{
			name:    "rgb persist",
			call:    func(r *Robot) error { return r.SetRGBLED(ctx, Color{1, 2, 3}, true, true) },
			cmd:     protocol.CmdSetRGBLED,
			payload: []byte{1, 2, 3, 1},
		},
		{
			name:    "back led",
			call:    func(r *Robot) error { return r.SetBackLED(ctx, 0xFF, false) },
			cmd:     protocol.CmdSetBackLED,
			payload: []byte{0xFF},
		},
		{
			name: "raw motors",
			call: func(r *Robot) error {
				return r.SetRawMotors(ctx, Motor{MotorForward, 0x40}, Motor{MotorReverse, 0x20}, true)
			},
			cmd:     protocol.CmdSetRawMotors,
			payload: []byte{0x01, 0x40, 0x02, 0x20},
		},
		{
			name: "locator",
			call: func(r *Robot) error {
				return r.ConfigureLocator(ctx, LocatorConfig{Flags: 1, X: -1, Y: 2, YawTare: 90}, true)
			},
			cmd:     protocol.CmdConfigureLocator,
			payload: []byte{0x01, 0xFF, 0xFF, 0x00, 0x02, 0x00, 0x5A},
		},
		{
			name:    "run macro",
			call:    func(r *Robot) error { return r.RunMacro(ctx, 7) },
			cmd:     protocol.CmdRunMacro,
			payload: []byte{0x07},
		},
		{
			name:    "abort macro",
			call:    func(r *Robot) error { return r.AbortMacro(ctx) },
			cmd:     protocol.CmdAbortMacro,
			payload: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, link := newTestRobot(t)
			require.NoError(t, tt.call(r))

			cmd, payload := lastPayload(t, link)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestRobot_FireAndForget(t *testing.T) {
	r, link := newTestRobot(t)

	require.NoError(t, r.Roll(context.Background(), 0x10, 0, false))
	writes := link.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, byte(protocol.SOP2Async), writes[0][1])
	assert.Equal(t, 0, r.Session().Pending())
}

func TestRobot_ValidationBeforeSend(t *testing.T) {
	r, link := newTestRobot(t)
	ctx := context.Background()

	assert.True(t, IsValidationError(r.Roll(ctx, 0, 360, true)))
	assert.True(t, IsValidationError(r.SetHeading(ctx, -1, true)))
	assert.True(t, IsValidationError(r.SetRawMotors(ctx, Motor{Mode: 9}, Motor{}, true)))
	assert.True(t, IsValidationError(r.EraseOrbBasic(ctx, 2)))
	assert.Empty(t, link.Writes())
}

func TestRobot_StatusError(t *testing.T) {
	r, link := newTestRobot(t)
	link.SetResponder(func(packet []byte) [][]byte {
		resp, err := protocol.EncodeInbound(protocol.SOP2Sync, protocol.StatusUnknownCommand, packet[4], nil)
		if err != nil {
			return nil
		}
		return [][]byte{resp}
	})

	err := r.Ping(context.Background())
	var statusErr *session.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, protocol.CmdPing, statusErr.Command)
}

func TestRobot_LoadOrbBasic(t *testing.T) {
	r, link := newTestRobot(t)
	ctx := context.Background()

	program := "10 RGB 255, 0, 0\n\n20 delay 500\r\n30 end\n"
	n, err := r.LoadOrbBasic(ctx, AreaRAM, program)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	writes := link.Writes()
	require.Len(t, writes, 4)

	assert.Equal(t, protocol.CmdEraseOrbBasic.CID, writes[0][3])
	assert.Equal(t, []byte{AreaRAM}, writes[0][6:len(writes[0])-1])

	last := writes[3]
	assert.Equal(t, protocol.CmdAppendOrbBasic.CID, last[3])
	assert.Equal(t, append([]byte{AreaRAM}, "30 end\x00"...), last[6:len(last)-1])

	require.NoError(t, r.ExecuteOrbBasic(ctx, AreaRAM, 10))
	cmd, payload := lastPayload(t, link)
	assert.Equal(t, protocol.CmdExecuteOrbBasic, cmd)
	assert.Equal(t, []byte{0x00, 0x00, 0x0A}, payload)

	require.NoError(t, r.AbortOrbBasic(ctx))
	cmd, _ = lastPayload(t, link)
	assert.Equal(t, protocol.CmdAbortOrbBasic, cmd)
}

func TestRobot_AppendOrbBasicTooLong(t *testing.T) {
	r, _ := newTestRobot(t)
	err := r.AppendOrbBasic(context.Background(), AreaRAM, make([]byte, protocol.MaxPayloadSize))
	assert.True(t, IsValidationError(err))
}

func TestRobot_Stream(t *testing.T) {
	r, link := newTestRobot(t)

	var got []Sample
	require.NoError(t, r.Stream("imu_filtered", func(s Sample) { got = append(got, s) }))
	require.NoError(t, r.UpdateStreaming(context.Background(), 50))

	_, payload := lastPayload(t, link)
	assert.Equal(t, []byte{0x00, 0x08}, payload[0:2])
	assert.Equal(t, []byte{0x00, 0x07, 0x00, 0x00}, payload[4:8])

	pitch := int16(-5)
	data := make([]byte, 6)
	binary.BigEndian.PutUint16(data[0:], uint16(pitch))
	binary.BigEndian.PutUint16(data[2:], 12)
	binary.BigEndian.PutUint16(data[4:], 180)
	pkt, err := protocol.EncodeInbound(protocol.SOP2Async, protocol.AsyncSensorData, 0, data)
	require.NoError(t, err)
	r.Session().OnTransportData(pkt)

	require.Len(t, got, 1)
	assert.Equal(t, "imu_filtered", got[0].Group)
	assert.Equal(t, []string{"pitch", "roll", "yaw"}, got[0].Fields)
	assert.Equal(t, []int16{-5, 12, 180}, got[0].Values)

	yaw, ok := got[0].Value("yaw")
	assert.True(t, ok)
	assert.Equal(t, int16(180), yaw)
	assert.Equal(t, "imu_filtered pitch=-5 roll=12 yaw=180", got[0].String())

	require.NoError(t, r.StopStream("imu_filtered"))
	assert.Empty(t, r.Session().Subscriptions())
}

func TestRobot_StreamUnknownGroup(t *testing.T) {
	r, _ := newTestRobot(t)
	assert.ErrorIs(t, r.Stream("barometer", func(Sample) {}), mask.ErrUnknownGroup)
}
