package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/config"
	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
)

// Command flags
var (
	persistColor bool
	rollDuration time.Duration
	noWait       bool
	abortMacro   bool
)

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(backLEDCmd)
	rootCmd.AddCommand(rollCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(headingCmd)
	rootCmd.AddCommand(stabilizeCmd)
	rootCmd.AddCommand(macroCmd)

	colorCmd.Flags().BoolVar(&persistColor, "persist", false, "Make the color the robot's default after power cycling")
	rollCmd.Flags().DurationVar(&rollDuration, "duration", 2*time.Second, "How long to roll before stopping (0 = keep rolling)")
	rootCmd.PersistentFlags().BoolVar(&noWait, "no-wait", false, "Send drive and LED commands without waiting for an acknowledgement")
	macroCmd.Flags().BoolVar(&abortMacro, "abort", false, "Abort the running macro instead of starting one")
}

// withRobot connects, runs fn and closes the link. Failures are shown in a
// result box with connection tips.
func withRobot(cmd *cobra.Command, title string, fn func(ctx context.Context, c *connection, p *ui.Printer) error) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	ctx := cmd.Context()

	c, err := connect(ctx)
	if err != nil {
		p.PrintError(title, err, ui.ConnectionTips)
		return err
	}
	defer c.Close()

	if err := fn(ctx, c, p); err != nil {
		var tips []string
		if !robot.IsValidationError(err) {
			tips = ui.ConnectionTips
		}
		p.PrintError(title, err, tips)
		return err
	}
	return nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the robot answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Ping", func(ctx context.Context, c *connection, p *ui.Printer) error {
			start := time.Now()
			if err := c.Robot.Ping(ctx); err != nil {
				return err
			}
			p.PrintSuccess("Robot responded",
				ui.Detail{Key: "Robot", Value: c.Name()},
				ui.Detail{Key: "Round trip", Value: time.Since(start).Round(time.Millisecond).String()},
			)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show firmware version, name and LED color",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Robot info", func(ctx context.Context, c *connection, p *ui.Printer) error {
			v, err := c.Robot.Version(ctx)
			if err != nil {
				return fmt.Errorf("version: %w", err)
			}
			name, err := c.Robot.DeviceName(ctx)
			if err != nil {
				return fmt.Errorf("device name: %w", err)
			}
			color, err := c.Robot.GetRGBLED(ctx)
			if err != nil {
				return fmt.Errorf("LED color: %w", err)
			}

			c.remember(func(r *config.Robot) {
				r.Name = name.Name
				r.Firmware = v.Summary()
				r.LastColor = color.String()
			})

			p.PrintSuccess(name.Name,
				ui.Detail{Key: "Address", Value: robot.FormatBTA(name.BTA)},
				ui.Detail{Key: "Model", Value: fmt.Sprintf("0x%02X", v.MDL)},
				ui.Detail{Key: "Hardware", Value: strconv.Itoa(int(v.HW))},
				ui.Detail{Key: "Firmware", Value: fmt.Sprintf("%d.%d", v.MSAVersion, v.MSARevision)},
				ui.Detail{Key: "Bootloader", Value: fmt.Sprintf("%d.%d", v.BL>>4, v.BL&0x0F)},
				ui.Detail{Key: "LED", Value: color.String()},
			)
			return nil
		})
	},
}

var colorCmd = &cobra.Command{
	Use:   "color [RRGGBB|name]",
	Short: "Set or read the main LED color",
	Example: `  sprk color          # read the current color
  sprk color red
  sprk color "#00FF80" --persist`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "LED color", func(ctx context.Context, c *connection, p *ui.Printer) error {
			if len(args) == 0 {
				color, err := c.Robot.GetRGBLED(ctx)
				if err != nil {
					return err
				}
				p.PrintSuccess("Current color", ui.Detail{Key: "LED", Value: color.String()})
				return nil
			}

			color, err := robot.ParseHexColor(args[0])
			if err != nil {
				return err
			}
			if err := c.Robot.SetRGBLED(ctx, color, persistColor, !noWait); err != nil {
				return err
			}
			c.remember(func(r *config.Robot) { r.LastColor = color.String() })

			p.PrintSuccess("Color set",
				ui.Detail{Key: "LED", Value: color.String()},
				ui.Detail{Key: "Persistent", Value: strconv.FormatBool(persistColor)},
			)
			return nil
		})
	},
}

var backLEDCmd = &cobra.Command{
	Use:   "backled <0-255>",
	Short: "Set the brightness of the aiming LED",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Back LED", func(ctx context.Context, c *connection, p *ui.Printer) error {
			level, err := parseByte("brightness", args[0])
			if err != nil {
				return err
			}
			if err := c.Robot.SetBackLED(ctx, level, !noWait); err != nil {
				return err
			}
			p.PrintSuccess("Back LED set", ui.Detail{Key: "Brightness", Value: args[0]})
			return nil
		})
	},
}

var rollCmd = &cobra.Command{
	Use:   "roll <speed 0-255> <heading 0-359>",
	Short: "Roll at a speed towards a heading",
	Example: `  # Roll forward at half speed for two seconds
  sprk roll 128 0

  # Roll right and keep going
  sprk roll 80 90 --duration 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Roll", func(ctx context.Context, c *connection, p *ui.Printer) error {
			speed, err := parseByte("speed", args[0])
			if err != nil {
				return err
			}
			heading, err := parseHeading(args[1])
			if err != nil {
				return err
			}

			if err := c.Robot.Roll(ctx, speed, heading, !noWait); err != nil {
				return err
			}
			if rollDuration > 0 {
				select {
				case <-time.After(rollDuration):
				case <-ctx.Done():
				}
				stopCtx, cancel := context.WithTimeout(context.Background(), c.Session.Timeout())
				defer cancel()
				if err := c.Robot.Stop(stopCtx, true); err != nil {
					return fmt.Errorf("stop: %w", err)
				}
			}

			p.PrintSuccess("Rolled",
				ui.Detail{Key: "Speed", Value: args[0]},
				ui.Detail{Key: "Heading", Value: strconv.Itoa(heading)},
				ui.Detail{Key: "Duration", Value: rollDuration.String()},
			)
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Bring the robot to rest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Stop", func(ctx context.Context, c *connection, p *ui.Printer) error {
			if err := c.Robot.Stop(ctx, true); err != nil {
				return err
			}
			p.PrintSuccess("Stopped")
			return nil
		})
	},
}

var headingCmd = &cobra.Command{
	Use:   "heading <0-359>",
	Short: "Redefine the current direction as the given heading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Heading", func(ctx context.Context, c *connection, p *ui.Printer) error {
			heading, err := parseHeading(args[0])
			if err != nil {
				return err
			}
			if err := c.Robot.SetHeading(ctx, heading, !noWait); err != nil {
				return err
			}
			p.PrintSuccess("Heading set", ui.Detail{Key: "Heading", Value: strconv.Itoa(heading)})
			return nil
		})
	},
}

var stabilizeCmd = &cobra.Command{
	Use:       "stabilize <on|off>",
	Short:     "Turn the stabilization control system on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "Stabilization", func(ctx context.Context, c *connection, p *ui.Printer) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			if err := c.Robot.SetStabilization(ctx, on, !noWait); err != nil {
				return err
			}
			p.PrintSuccess("Stabilization set", ui.Detail{Key: "Enabled", Value: strconv.FormatBool(on)})
			return nil
		})
	},
}

var macroCmd = &cobra.Command{
	Use:   "macro [id]",
	Short: "Run a stored macro, or abort the running one",
	Example: `  sprk macro 3
  sprk macro --abort`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !abortMacro && len(args) == 0 {
			return fmt.Errorf("a macro id is required unless --abort is given")
		}
		return withRobot(cmd, "Macro", func(ctx context.Context, c *connection, p *ui.Printer) error {
			if abortMacro {
				if err := c.Robot.AbortMacro(ctx); err != nil {
					return err
				}
				p.PrintSuccess("Macro aborted")
				return nil
			}
			id, err := parseByte("macro id", args[0])
			if err != nil {
				return err
			}
			if err := c.Robot.RunMacro(ctx, id); err != nil {
				return err
			}
			p.PrintSuccess("Macro started", ui.Detail{Key: "ID", Value: args[0]})
			return nil
		})
	},
}

func parseByte(name, s string) (byte, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, robot.NewValidationError(fmt.Sprintf("%s must be a number, got %q", name, s))
	}
	if err := robot.ValidateByte(name, v); err != nil {
		return 0, err
	}
	return byte(v), nil
}

func parseHeading(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, robot.NewValidationError(fmt.Sprintf("heading must be a number, got %q", s))
	}
	if err := robot.ValidateHeading(v); err != nil {
		return 0, err
	}
	return v, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, robot.NewValidationError(fmt.Sprintf("expected on or off, got %q", s))
	}
}
