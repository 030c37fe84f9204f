package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

// GATT services and characteristics exposed by the robot
const (
	RobotControlService    = "22bb746f-2ba0-7554-2d6f-726568705327"
	CommandsCharacteristic = "22bb746f-2ba1-7554-2d6f-726568705327"
	ResponseCharacteristic = "22bb746f-2ba6-7554-2d6f-726568705327"

	BLEService            = "22bb746f-2bb0-7554-2d6f-726568705327"
	AntiDOSCharacteristic = "22bb746f-2bbd-7554-2d6f-726568705327"
	TXPowerCharacteristic = "22bb746f-2bb2-7554-2d6f-726568705327"
	WakeCharacteristic    = "22bb746f-2bbf-7554-2d6f-726568705327"
)

// Developer-mode unlock values
var (
	antiDOSUnlock = []byte("011i3")
	txPowerLevel  = []byte{7}
	wakeValue     = []byte{1}
)

// DefaultScanTimeout bounds a BLE scan when the caller sets no deadline
const DefaultScanTimeout = 10 * time.Second

// Characteristic is the subset of a GATT characteristic the BLE transport
// uses. *bluetooth.DeviceCharacteristic satisfies it on every platform.
type Characteristic interface {
	WriteWithoutResponse(p []byte) (int, error)
	EnableNotifications(callback func(buf []byte)) error
}

// Advertisement is a robot seen during a scan
type Advertisement struct {
	Name    string
	Address string
	RSSI    int16
}

// BLE is a Transport over the robot's GATT command and response
// characteristics.
type BLE struct {
	commands   Characteristic
	responses  Characteristic
	disconnect func() error

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// NewBLE builds a transport from already discovered characteristics.
// disconnect may be nil.
func NewBLE(commands, responses Characteristic, disconnect func() error) *BLE {
	return &BLE{
		commands:   commands,
		responses:  responses,
		disconnect: disconnect,
		done:       make(chan struct{}),
	}
}

// Unlock performs the developer-mode handshake that makes the robot accept
// commands over BLE.
func Unlock(antiDOS, txPower, wake Characteristic) error {
	for _, step := range []struct {
		name  string
		char  Characteristic
		value []byte
	}{
		{"anti-DOS", antiDOS, antiDOSUnlock},
		{"TX power", txPower, txPowerLevel},
		{"wake", wake, wakeValue},
	} {
		if _, err := step.char.WriteWithoutResponse(step.value); err != nil {
			return fmt.Errorf("failed to write %s characteristic: %w", step.name, err)
		}
	}
	return nil
}

// IsRobotName reports whether an advertised name looks like a Sphero robot
func IsRobotName(name string) bool {
	for _, prefix := range []string{"SK-", "BB-", "LM-", "Sphero", "2B-"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ScanBLE reports robots advertising nearby until ctx is done. Without a
// deadline on ctx the scan stops after DefaultScanTimeout.
func ScanBLE(ctx context.Context) ([]Advertisement, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable Bluetooth: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultScanTimeout)
		defer cancel()
	}

	var (
		mu    sync.Mutex
		found = map[string]Advertisement{}
	)
	err := scanUntil(ctx, adapter, func(result bluetooth.ScanResult) bool {
		name := result.LocalName()
		if IsRobotName(name) {
			mu.Lock()
			found[result.Address.String()] = Advertisement{
				Name:    name,
				Address: result.Address.String(),
				RSSI:    result.RSSI,
			}
			mu.Unlock()
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	ads := make([]Advertisement, 0, len(found))
	for _, ad := range found {
		ads = append(ads, ad)
	}
	return ads, nil
}

// DialBLE scans for the robot at addr (or the first robot seen when addr is
// empty), connects, unlocks developer mode, and binds the command and
// response characteristics.
func DialBLE(ctx context.Context, addr string) (*BLE, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable Bluetooth: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultScanTimeout)
		defer cancel()
	}

	var (
		target bluetooth.ScanResult
		seen   bool
	)
	err := scanUntil(ctx, adapter, func(result bluetooth.ScanResult) bool {
		match := IsRobotName(result.LocalName())
		if addr != "" {
			match = strings.EqualFold(result.Address.String(), addr)
		}
		if match {
			target = result
			seen = true
		}
		return match
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		if addr == "" {
			return nil, fmt.Errorf("no robot found")
		}
		return nil, fmt.Errorf("robot %s not found", addr)
	}

	logging.Info("Connecting to robot",
		zap.String("name", target.LocalName()),
		zap.String("address", target.Address.String()),
	)

	device, err := adapter.Connect(target.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	chars, err := discover(device, BLEService, AntiDOSCharacteristic, TXPowerCharacteristic, WakeCharacteristic)
	if err != nil {
		device.Disconnect()
		return nil, err
	}
	if err := Unlock(chars[0], chars[1], chars[2]); err != nil {
		device.Disconnect()
		return nil, err
	}

	chars, err = discover(device, RobotControlService, CommandsCharacteristic, ResponseCharacteristic)
	if err != nil {
		device.Disconnect()
		return nil, err
	}

	return NewBLE(chars[0], chars[1], device.Disconnect), nil
}

// scanUntil runs a scan until stop returns true or ctx is done
func scanUntil(ctx context.Context, adapter *bluetooth.Adapter, stop func(bluetooth.ScanResult) bool) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			adapter.StopScan()
		case <-done:
		}
	}()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if stop(result) {
			a.StopScan()
		}
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// discover returns the requested characteristics of one service, in the
// order asked for
func discover(device bluetooth.Device, service string, uuids ...string) ([]Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(service)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service UUID: %w", err)
	}

	srvs, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(srvs) == 0 {
		return nil, fmt.Errorf("service %s not found: %v", service, err)
	}

	want := make([]bluetooth.UUID, len(uuids))
	for i, u := range uuids {
		want[i], err = bluetooth.ParseUUID(u)
		if err != nil {
			return nil, fmt.Errorf("failed to parse characteristic UUID: %w", err)
		}
	}

	found, err := srvs[0].DiscoverCharacteristics(want)
	if err != nil {
		return nil, fmt.Errorf("failed to discover characteristics of %s: %w", service, err)
	}

	out := make([]Characteristic, len(uuids))
	for j := range found {
		for i, u := range uuids {
			if strings.EqualFold(found[j].UUID().String(), u) {
				out[i] = &found[j]
			}
		}
	}
	for i, c := range out {
		if c == nil {
			return nil, fmt.Errorf("characteristic %s not found", uuids[i])
		}
	}
	return out, nil
}

// Start enables notifications on the response characteristic
func (b *BLE) Start(ctx context.Context, recv Receiver) error {
	if b.isClosed() {
		return ErrClosed
	}

	err := b.responses.EnableNotifications(func(buf []byte) {
		if b.isClosed() {
			return
		}
		chunk := make([]byte, len(buf))
		copy(chunk, buf)
		logging.LogRawBytes("BLE notification", chunk)
		recv(chunk)
	})
	if err != nil {
		return fmt.Errorf("failed to enable notifications: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			b.Close()
		case <-b.done:
		}
	}()
	return nil
}

// Write sends p on the command characteristic
func (b *BLE) Write(p []byte) error {
	if b.isClosed() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if _, err := b.commands.WriteWithoutResponse(p); err != nil {
		return fmt.Errorf("ble write: %w", err)
	}
	return nil
}

// Close disconnects from the robot
func (b *BLE) Close() error {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.closeMu.Unlock()

	if b.disconnect != nil {
		return b.disconnect()
	}
	return nil
}

func (b *BLE) isClosed() bool {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	return b.closed
}
