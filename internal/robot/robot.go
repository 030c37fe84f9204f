package robot

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"go.uber.org/zap"
)

// Robot issues typed commands over a session.
//
// Commands that change state take a wait flag. With wait the call blocks
// until the robot acknowledges and returns its MRSP error, if any; without
// it the command is sent fire-and-forget, which is what drive loops want.
// Queries always wait.
type Robot struct {
	s *session.Session
}

// New wraps an open session
func New(s *session.Session) *Robot {
	return &Robot{s: s}
}

// Session returns the underlying session
func (r *Robot) Session() *session.Session {
	return r.s
}

// send writes cmd and, when wait is set, checks the response status
func (r *Robot) send(ctx context.Context, cmd protocol.Command, payload []byte, wait bool) (*session.Response, error) {
	_, resp, err := r.s.Send(ctx, cmd, payload, wait)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// query sends cmd and returns the response payload
func (r *Robot) query(ctx context.Context, cmd protocol.Command, payload []byte) ([]byte, error) {
	resp, err := r.send(ctx, cmd, payload, true)
	if err != nil {
		return nil, err
	}
	return resp.Payload(), nil
}

// Ping checks the robot is responding
func (r *Robot) Ping(ctx context.Context) error {
	_, err := r.send(ctx, protocol.CmdPing, nil, true)
	return err
}

// Version reads the firmware and hardware versions
func (r *Robot) Version(ctx context.Context) (*VersionInfo, error) {
	payload, err := r.query(ctx, protocol.CmdVersion, nil)
	if err != nil {
		return nil, err
	}
	return ParseVersionInfo(payload)
}

// DeviceName reads the robot's name and Bluetooth address
func (r *Robot) DeviceName(ctx context.Context) (*DeviceName, error) {
	payload, err := r.query(ctx, protocol.CmdGetDeviceName, nil)
	if err != nil {
		return nil, err
	}
	return ParseDeviceName(payload)
}

// Roll drives at speed (0-255) towards heading (0-359 degrees)
func (r *Robot) Roll(ctx context.Context, speed byte, heading int, wait bool) error {
	if err := ValidateHeading(heading); err != nil {
		return err
	}
	payload := []byte{speed, 0, 0, 0x01}
	binary.BigEndian.PutUint16(payload[1:3], uint16(heading))

	logging.Debug("Roll", zap.Uint8("speed", speed), zap.Int("heading", heading))
	_, err := r.send(ctx, protocol.CmdRoll, payload, wait)
	return err
}

// Stop brings the robot to rest keeping its heading
func (r *Robot) Stop(ctx context.Context, wait bool) error {
	return r.Roll(ctx, 0, 0, wait)
}

// SetHeading redefines the current direction as heading
func (r *Robot) SetHeading(ctx context.Context, heading int, wait bool) error {
	if err := ValidateHeading(heading); err != nil {
		return err
	}
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(heading))

	_, err := r.send(ctx, protocol.CmdSetHeading, payload, wait)
	return err
}

// SetStabilization turns the control system on or off
func (r *Robot) SetStabilization(ctx context.Context, on bool, wait bool) error {
	_, err := r.send(ctx, protocol.CmdSetStabilization, []byte{boolByte(on)}, wait)
	return err
}

// SetRGBLED sets the main LED. With persist the color becomes the user
// default that survives a power cycle.
func (r *Robot) SetRGBLED(ctx context.Context, c Color, persist bool, wait bool) error {
	_, err := r.send(ctx, protocol.CmdSetRGBLED, []byte{c.R, c.G, c.B, boolByte(persist)}, wait)
	return err
}

// GetRGBLED reads the user LED color
func (r *Robot) GetRGBLED(ctx context.Context) (Color, error) {
	payload, err := r.query(ctx, protocol.CmdGetRGBLED, nil)
	if err != nil {
		return Color{}, err
	}
	return ParseColor(payload)
}

// SetBackLED sets the brightness of the aiming LED
func (r *Robot) SetBackLED(ctx context.Context, brightness byte, wait bool) error {
	_, err := r.send(ctx, protocol.CmdSetBackLED, []byte{brightness}, wait)
	return err
}

// SetRawMotors drives each wheel directly, bypassing the control system
func (r *Robot) SetRawMotors(ctx context.Context, left, right Motor, wait bool) error {
	if err := ValidateMotor(left); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := ValidateMotor(right); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	payload := []byte{byte(left.Mode), left.Power, byte(right.Mode), right.Power}
	_, err := r.send(ctx, protocol.CmdSetRawMotors, payload, wait)
	return err
}

// ConfigureLocator moves the locator origin and sets its yaw tare
func (r *Robot) ConfigureLocator(ctx context.Context, cfg LocatorConfig, wait bool) error {
	payload := make([]byte, 7)
	payload[0] = cfg.Flags
	binary.BigEndian.PutUint16(payload[1:3], uint16(cfg.X))
	binary.BigEndian.PutUint16(payload[3:5], uint16(cfg.Y))
	binary.BigEndian.PutUint16(payload[5:7], uint16(cfg.YawTare))

	_, err := r.send(ctx, protocol.CmdConfigureLocator, payload, wait)
	return err
}

// RunMacro starts a stored macro
func (r *Robot) RunMacro(ctx context.Context, id byte) error {
	_, err := r.send(ctx, protocol.CmdRunMacro, []byte{id}, true)
	return err
}

// AbortMacro stops the running macro
func (r *Robot) AbortMacro(ctx context.Context) error {
	_, err := r.send(ctx, protocol.CmdAbortMacro, nil, true)
	return err
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}
