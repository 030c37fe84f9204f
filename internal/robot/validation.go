package robot

import (
	"fmt"
	"strings"

	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
)

// MaxHeading is the largest heading in degrees
const MaxHeading = 359

// ValidateHeading checks a heading is 0-359 degrees
func ValidateHeading(heading int) error {
	if heading < 0 || heading > MaxHeading {
		return NewValidationError(fmt.Sprintf("heading must be 0-%d, got %d", MaxHeading, heading))
	}
	return nil
}

// ValidateByte checks v fits one unsigned byte
func ValidateByte(name string, v int) error {
	if v < 0 || v > 0xFF {
		return NewValidationError(fmt.Sprintf("%s must be 0-255, got %d", name, v))
	}
	return nil
}

// ValidateMotor checks a raw motor setting
func ValidateMotor(m Motor) error {
	if m.Mode > MotorIgnore {
		return NewValidationError(fmt.Sprintf("unknown motor mode %d", byte(m.Mode)))
	}
	return nil
}

// ValidateArea checks an orbBasic storage area
func ValidateArea(area byte) error {
	if area != AreaRAM && area != AreaPersistent {
		return NewValidationError(fmt.Sprintf("orbBasic area must be 0 (RAM) or 1 (persistent), got %d", area))
	}
	return nil
}

// ValidateOrbBasicLine checks a program line fits one append command after
// the area byte and terminator
func ValidateOrbBasicLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return NewValidationError("orbBasic line must not contain line breaks")
	}
	if len(line)+2 > protocol.MaxPayloadSize {
		return NewValidationError(fmt.Sprintf("orbBasic line too long: %d bytes", len(line)))
	}
	return nil
}
