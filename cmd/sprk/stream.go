package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
)

// Stream command flags
var (
	streamRate     int
	streamPlain    bool
	streamDuration time.Duration
)

const sampleBuffer = 256

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().IntVar(&streamRate, "rate", 0, "Samples per second (default from config, max 400)")
	streamCmd.Flags().BoolVar(&streamPlain, "plain", false, "Print JSON lines instead of the live monitor")
	streamCmd.Flags().DurationVar(&streamDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

var streamCmd = &cobra.Command{
	Use:   "stream <group>...",
	Short: "Stream decoded sensor groups",
	Long: `Subscribe to one or more sensor groups and show them as they arrive.

On a terminal the live monitor is shown; otherwise, or with --plain, every
sample is printed as one JSON object per line. Run 'sprk tables' for the
group names.`,
	Example: `  sprk stream imu_filtered accel_raw --rate 20
  sprk stream odometer --plain --duration 10s > run.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStream,
}

func runStream(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		ui.NewPrinter(cmd.OutOrStdout()).PrintError("Stream", err, ui.ConnectionTips)
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if streamDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, streamDuration)
		defer cancel()
	}

	rate := streamRate
	if rate == 0 {
		rate = c.Registry.Preferences.StreamRate
	}

	samples := make(chan robot.Sample, sampleBuffer)
	orb := make(chan session.OrbBasicMessage, 16)
	var dropped atomic.Int64

	for _, group := range args {
		if err := c.Robot.Stream(group, func(s robot.Sample) {
			select {
			case samples <- s:
			default:
				dropped.Add(1)
			}
		}); err != nil {
			return err
		}
	}
	c.Session.SetOrbBasicHandler(func(msg session.OrbBasicMessage) {
		select {
		case orb <- msg:
		default:
		}
	})

	if err := c.Robot.UpdateStreaming(ctx, rate); err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}

	if !streamPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		err = ui.RunMonitor(ctx, ui.MonitorConfig{
			Robot:    c.Name(),
			Rate:     rate,
			Samples:  samples,
			OrbBasic: orb,
		})
	} else {
		err = printSamples(ctx, cmd, samples, orb)
	}

	logging.Info("Stream finished",
		zap.Strings("groups", args),
		zap.Int("rate", rate),
		zap.Int64("dropped", dropped.Load()),
		zap.Uint64("mask_mismatches", c.Session.Stats().MaskMismatches),
	)
	return err
}

// printSamples writes each sample and orbBasic line as JSON until ctx is done
func printSamples(ctx context.Context, cmd *cobra.Command, samples <-chan robot.Sample, orb <-chan session.OrbBasicMessage) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-samples:
			if err := enc.Encode(s); err != nil {
				return err
			}
		case msg := <-orb:
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
	}
}
