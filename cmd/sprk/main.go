// Sprk drives Sphero SPRK+ / BB-8 class robots over Bluetooth.
//
// It connects over a Bluetooth serial port (RFCOMM/SPP) or BLE, sends
// commands, streams decoded sensor data and can republish that telemetry to
// websocket clients on the local network.
//
// Usage:
//
//	sprk [command] [flags]
//
// See 'sprk --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/version"
)

const appName = "sprk"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Sphero robot control and telemetry",
	Long: `Control Sphero SPRK+ class robots and stream their sensors.

The robot is reached over a Bluetooth serial port (--port) or BLE (--ble).
Without either flag the default robot from the configuration file is used;
--robot picks another one by address or nickname.

Logging is silent unless --log-level or SPRK_LOG_LEVEL is set.`,
	Version: version.Version,
	Example: `  # Ping a robot paired as a serial port
  sprk ping --port /dev/rfcomm0

  # Turn it red
  sprk color red --port /dev/rfcomm0

  # Watch the filtered IMU at 20 Hz
  sprk stream imu_filtered --rate 20

  # Publish telemetry to the network
  sprk serve --groups imu_filtered,accel_raw`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

// Persistent connection flags
var (
	serialPort string
	bleAddress string
	robotRef   string
	baudRate   int
	timeout    string
	logLevel   string
	tablesDir  string
)

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&serialPort, "port", "", "Serial port of the robot (e.g. /dev/rfcomm0)")
	rootCmd.PersistentFlags().StringVar(&bleAddress, "ble", "", "BLE address or name of the robot")
	rootCmd.PersistentFlags().StringVar(&robotRef, "robot", "", "Known robot by address or nickname")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 0, "Serial baud rate (default 115200)")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "Command response timeout (e.g. 2s)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&tablesDir, "tables", "", "Directory holding mask_list1.yaml and mask_list2.yaml")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Banner(appName))
	},
}
