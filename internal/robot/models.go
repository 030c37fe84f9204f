package robot

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// VersionInfo is the reply to the core Version command
type VersionInfo struct {
	RECV        byte // record version
	MDL         byte // model number
	HW          byte // hardware version
	MSAVersion  byte // main application version
	MSARevision byte // main application revision
	BL          byte // bootloader version, packed nibbles
}

// ParseVersionInfo decodes a Version response payload
func ParseVersionInfo(payload []byte) (*VersionInfo, error) {
	if len(payload) < 6 {
		return nil, NewParseError(fmt.Sprintf("version payload too short: %d bytes", len(payload)))
	}
	return &VersionInfo{
		RECV:        payload[0],
		MDL:         payload[1],
		HW:          payload[2],
		MSAVersion:  payload[3],
		MSARevision: payload[4],
		BL:          payload[5],
	}, nil
}

// Color is an RGB LED color
type Color struct {
	R, G, B byte
}

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor decodes a GetRGBLED response payload
func ParseColor(payload []byte) (Color, error) {
	if len(payload) < 3 {
		return Color{}, NewParseError(fmt.Sprintf("color payload too short: %d bytes", len(payload)))
	}
	return Color{payload[0], payload[1], payload[2]}, nil
}

// ParseHexColor reads "RRGGBB", "#RRGGBB" or one of a few color names
func ParseHexColor(s string) (Color, error) {
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 3 {
		return Color{}, NewValidationError(fmt.Sprintf("color must be RRGGBB, got %q", s))
	}
	return Color{R: b[0], G: b[1], B: b[2]}, nil
}

var namedColors = map[string]Color{
	"off":    {0, 0, 0},
	"red":    {0xFF, 0, 0},
	"green":  {0, 0xFF, 0},
	"blue":   {0, 0, 0xFF},
	"white":  {0xFF, 0xFF, 0xFF},
	"yellow": {0xFF, 0xFF, 0},
	"purple": {0x80, 0, 0x80},
}

// Device name response layout
const (
	nameSize  = 16
	btaSize   = 12
	colorSize = 3
)

// DeviceName is the reply to GetDeviceName: the user-assigned name, the
// Bluetooth address as ASCII hex and the three-letter color code printed
// after the name in advertisements
type DeviceName struct {
	Name  string
	BTA   string
	Color string
}

// ParseDeviceName decodes a GetDeviceName response payload
func ParseDeviceName(payload []byte) (*DeviceName, error) {
	if len(payload) < nameSize {
		return nil, NewParseError(fmt.Sprintf("device name payload too short: %d bytes", len(payload)))
	}

	dn := &DeviceName{Name: trimField(payload[:nameSize])}
	if len(payload) >= nameSize+btaSize {
		dn.BTA = trimField(payload[nameSize : nameSize+btaSize])
	}
	if len(payload) >= nameSize+btaSize+colorSize {
		dn.Color = trimField(payload[nameSize+btaSize : nameSize+btaSize+colorSize])
	}
	return dn, nil
}

func trimField(b []byte) string {
	return string(bytes.TrimRight(b, " \t\r\n\x00"))
}

// MotorMode selects what a raw motor command does with one wheel
type MotorMode byte

const (
	MotorOff     MotorMode = 0x00
	MotorForward MotorMode = 0x01
	MotorReverse MotorMode = 0x02
	MotorBrake   MotorMode = 0x03
	MotorIgnore  MotorMode = 0x04
)

func (m MotorMode) String() string {
	switch m {
	case MotorOff:
		return "off"
	case MotorForward:
		return "forward"
	case MotorReverse:
		return "reverse"
	case MotorBrake:
		return "brake"
	case MotorIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("MotorMode(%d)", byte(m))
	}
}

// Motor is one wheel's mode and power for SetRawMotors
type Motor struct {
	Mode  MotorMode
	Power byte
}

// LocatorConfig sets the locator's origin and yaw tare
type LocatorConfig struct {
	Flags   byte
	X       int16
	Y       int16
	YawTare int16
}

// OrbBasic storage areas
const (
	AreaRAM        byte = 0x00
	AreaPersistent byte = 0x01
)
