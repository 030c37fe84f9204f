package robot

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"go.uber.org/zap"
)

// EraseOrbBasic clears the program stored in area
func (r *Robot) EraseOrbBasic(ctx context.Context, area byte) error {
	if err := ValidateArea(area); err != nil {
		return err
	}
	_, err := r.send(ctx, protocol.CmdEraseOrbBasic, []byte{area}, true)
	return err
}

// AppendOrbBasic appends a raw program fragment to area
func (r *Robot) AppendOrbBasic(ctx context.Context, area byte, fragment []byte) error {
	if err := ValidateArea(area); err != nil {
		return err
	}
	if len(fragment)+1 > protocol.MaxPayloadSize {
		return NewValidationError(fmt.Sprintf("orbBasic fragment too long: %d bytes", len(fragment)))
	}

	payload := make([]byte, 0, len(fragment)+1)
	payload = append(payload, area)
	payload = append(payload, fragment...)

	_, err := r.send(ctx, protocol.CmdAppendOrbBasic, payload, true)
	return err
}

// AppendOrbBasicLine appends one program line, NUL terminated
func (r *Robot) AppendOrbBasicLine(ctx context.Context, area byte, line string) error {
	if err := ValidateOrbBasicLine(line); err != nil {
		return err
	}
	return r.AppendOrbBasic(ctx, area, append([]byte(line), 0x00))
}

// LoadOrbBasic erases area and appends program line by line. Blank lines
// are skipped.
func (r *Robot) LoadOrbBasic(ctx context.Context, area byte, program string) (int, error) {
	if err := r.EraseOrbBasic(ctx, area); err != nil {
		return 0, fmt.Errorf("erase: %w", err)
	}

	lines := 0
	scanner := bufio.NewScanner(strings.NewReader(program))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		if err := r.AppendOrbBasicLine(ctx, area, line); err != nil {
			return lines, fmt.Errorf("line %d: %w", lines+1, err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return lines, err
	}

	logging.Info("Loaded orbBasic program",
		zap.Uint8("area", area),
		zap.Int("lines", lines),
	)
	return lines, nil
}

// ExecuteOrbBasic runs the program in area from startLine
func (r *Robot) ExecuteOrbBasic(ctx context.Context, area byte, startLine uint16) error {
	if err := ValidateArea(area); err != nil {
		return err
	}
	payload := []byte{area, 0, 0}
	binary.BigEndian.PutUint16(payload[1:], startLine)

	_, err := r.send(ctx, protocol.CmdExecuteOrbBasic, payload, true)
	return err
}

// AbortOrbBasic stops the running program
func (r *Robot) AbortOrbBasic(ctx context.Context) error {
	_, err := r.send(ctx, protocol.CmdAbortOrbBasic, nil, true)
	return err
}
