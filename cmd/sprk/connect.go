package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/InnovationGarageLM/sphero-sprk/internal/config"
	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/mask"
	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"github.com/InnovationGarageLM/sphero-sprk/internal/transport"
)

// bleAuto connects to the first robot advertising nearby
const bleAuto = "auto"

// target is a resolved robot address and how to reach it
type target struct {
	Address   string
	Transport string
	BaudRate  int
}

// connection is an open robot link
type connection struct {
	Robot    *robot.Robot
	Session  *session.Session
	Target   target
	Registry *config.Registry
}

// Close stops streaming if needed and closes the link
func (c *connection) Close() {
	if c.Session.Streaming() {
		ctx, cancel := context.WithTimeout(context.Background(), c.Session.Timeout())
		if err := c.Session.StopStreaming(ctx); err != nil {
			logging.Warn("Failed to stop streaming", zap.Error(err))
		}
		cancel()
	}
	if err := c.Session.Close(); err != nil {
		logging.Warn("Error closing session", zap.Error(err))
	}
}

// Name returns the robot's display name
func (c *connection) Name() string {
	return c.Registry.DisplayName(c.Target.Address)
}

// resolveTarget picks the robot from --port, --ble, --robot or the default
// robot, in that order
func resolveTarget(reg *config.Registry) (target, error) {
	switch {
	case serialPort != "":
		return target{Address: serialPort, Transport: config.TransportSerial, BaudRate: baudRate}, nil
	case bleAddress == bleAuto:
		return target{Transport: config.TransportBLE}, nil
	case bleAddress != "":
		return target{Address: bleAddress, Transport: config.TransportBLE}, nil
	}

	addr := reg.Resolve(robotRef)
	if addr == "" {
		return target{}, fmt.Errorf("no robot given: use --port, --ble or --robot, or set preferences.default_robot")
	}

	t := target{Address: addr, Transport: guessTransport(addr), BaudRate: baudRate}
	if known := reg.GetRobot(addr); known != nil {
		if known.Transport != "" {
			t.Transport = known.Transport
		}
		if t.BaudRate == 0 {
			t.BaudRate = known.BaudRate
		}
	}
	return t, nil
}

// guessTransport treats device paths and COM ports as serial and anything
// else as a BLE address
func guessTransport(addr string) string {
	if strings.HasPrefix(addr, "/") {
		return config.TransportSerial
	}
	if runtime.GOOS == "windows" && strings.HasPrefix(strings.ToUpper(addr), "COM") {
		return config.TransportSerial
	}
	return config.TransportBLE
}

// commandTimeout returns --timeout or the configured default
func commandTimeout(reg *config.Registry) (time.Duration, error) {
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("invalid --timeout %q", timeout)
		}
		return d, nil
	}
	if reg.Preferences != nil && reg.Preferences.Timeout > 0 {
		return reg.Preferences.Timeout, nil
	}
	return config.DefaultTimeout, nil
}

// loadTables returns the mask tables from --tables, the configured
// directory, or the built-in defaults
func loadTables(reg *config.Registry) (*mask.Tables, error) {
	dir := tablesDir
	if dir == "" && reg.Preferences != nil {
		dir = reg.Preferences.MaskTableDir
	}
	if dir == "" {
		return mask.DefaultTables()
	}
	tables, err := mask.LoadTables(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask tables from %s: %w", dir, err)
	}
	return tables, nil
}

func openTransport(ctx context.Context, t target) (transport.Transport, error) {
	switch t.Transport {
	case config.TransportSerial:
		return transport.OpenSerial(t.Address, transport.PortOptions{BaudRate: t.BaudRate})
	case config.TransportBLE:
		return transport.DialBLE(ctx, t.Address)
	default:
		return nil, fmt.Errorf("unknown transport %q", t.Transport)
	}
}

// connect opens a session to the selected robot and records it in the
// registry
func connect(ctx context.Context) (*connection, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}
	t, err := resolveTarget(reg)
	if err != nil {
		return nil, err
	}
	d, err := commandTimeout(reg)
	if err != nil {
		return nil, err
	}
	tables, err := loadTables(reg)
	if err != nil {
		return nil, err
	}

	link, err := openTransport(ctx, t)
	if err != nil {
		return nil, err
	}

	sess := session.New(link, tables)
	sess.SetTimeout(d)
	if err := sess.Open(ctx); err != nil {
		link.Close()
		return nil, err
	}

	if t.Address != "" {
		reg.UpdateRobotLastSeen(t.Address, t.Transport, "")
		if t.BaudRate != 0 {
			reg.Robots[t.Address].BaudRate = t.BaudRate
		}
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to save registry", zap.Error(err))
		}
	}

	logging.Debug("Connected",
		zap.String("address", t.Address),
		zap.String("transport", t.Transport),
		zap.Duration("timeout", d),
	)
	return &connection{
		Robot:    robot.New(sess),
		Session:  sess,
		Target:   t,
		Registry: reg,
	}, nil
}

// remember stores what we learned about the robot
func (c *connection) remember(update func(*config.Robot)) {
	if c.Target.Address == "" {
		return
	}
	update(c.Registry.EnsureRobot(c.Target.Address))
	if err := c.Registry.Save(); err != nil {
		logging.Warn("Failed to save registry", zap.Error(err))
	}
}
