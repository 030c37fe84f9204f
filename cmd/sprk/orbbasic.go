package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
)

// orbBasic command flags
var (
	orbPersistent bool
	orbStartLine  uint16
	orbRun        bool
	orbFollow     bool
)

func init() {
	rootCmd.AddCommand(orbBasicCmd)
	orbBasicCmd.AddCommand(orbLoadCmd)
	orbBasicCmd.AddCommand(orbRunCmd)
	orbBasicCmd.AddCommand(orbAbortCmd)
	orbBasicCmd.AddCommand(orbEraseCmd)

	orbBasicCmd.PersistentFlags().BoolVar(&orbPersistent, "persistent", false, "Use the persistent program area instead of RAM")
	orbLoadCmd.Flags().BoolVar(&orbRun, "run", false, "Run the program after loading it")
	for _, c := range []*cobra.Command{orbLoadCmd, orbRunCmd} {
		c.Flags().Uint16Var(&orbStartLine, "start", 10, "Line number to start at")
		c.Flags().BoolVar(&orbFollow, "follow", false, "Print program output until interrupted")
	}
}

var orbBasicCmd = &cobra.Command{
	Use:   "orbbasic",
	Short: "Load and run orbBasic programs",
}

var orbLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Erase the program area and load a program file",
	Example: `  sprk orbbasic load square.bas --run --follow
  sprk orbbasic load boot.bas --persistent`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read program: %w", err)
		}
		return withRobot(cmd, "orbBasic", func(ctx context.Context, c *connection, p *ui.Printer) error {
			area := orbArea()
			lines, err := c.Robot.LoadOrbBasic(ctx, area, string(program))
			if err != nil {
				return err
			}
			p.PrintSuccess("Program loaded",
				ui.Detail{Key: "File", Value: filepath.Base(args[0])},
				ui.Detail{Key: "Lines", Value: strconv.Itoa(lines)},
				ui.Detail{Key: "Area", Value: areaName(area)},
			)
			if !orbRun {
				return nil
			}
			return runOrbBasic(ctx, c, p, area)
		})
	},
}

var orbRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stored program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "orbBasic", func(ctx context.Context, c *connection, p *ui.Printer) error {
			return runOrbBasic(ctx, c, p, orbArea())
		})
	},
}

var orbAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Stop the running program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "orbBasic", func(ctx context.Context, c *connection, p *ui.Printer) error {
			if err := c.Robot.AbortOrbBasic(ctx); err != nil {
				return err
			}
			p.PrintSuccess("Program aborted")
			return nil
		})
	},
}

var orbEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the program area",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRobot(cmd, "orbBasic", func(ctx context.Context, c *connection, p *ui.Printer) error {
			area := orbArea()
			if err := c.Robot.EraseOrbBasic(ctx, area); err != nil {
				return err
			}
			p.PrintSuccess("Program erased", ui.Detail{Key: "Area", Value: areaName(area)})
			return nil
		})
	},
}

// runOrbBasic starts the program and, with --follow, prints its output
// until ctx is done
func runOrbBasic(ctx context.Context, c *connection, p *ui.Printer, area byte) error {
	output := make(chan session.OrbBasicMessage, 64)
	if orbFollow {
		c.Session.SetOrbBasicHandler(func(msg session.OrbBasicMessage) {
			select {
			case output <- msg:
			default:
			}
		})
	}

	if err := c.Robot.ExecuteOrbBasic(ctx, area, orbStartLine); err != nil {
		return err
	}
	p.PrintSuccess("Program started",
		ui.Detail{Key: "Area", Value: areaName(area)},
		ui.Detail{Key: "Start line", Value: strconv.Itoa(int(orbStartLine))},
	)
	if !orbFollow {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-output:
			if msg.Error {
				p.Println(ui.OrbBasicErrorStyle.Render(msg.Text))
			} else {
				p.Println(ui.OrbBasicLineStyle.Render(msg.Text))
			}
		}
	}
}

func orbArea() byte {
	if orbPersistent {
		return robot.AreaPersistent
	}
	return robot.AreaRAM
}

func areaName(area byte) string {
	if area == robot.AreaPersistent {
		return "persistent"
	}
	return "RAM"
}
