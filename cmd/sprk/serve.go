package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/discovery"
	"github.com/InnovationGarageLM/sphero-sprk/internal/server"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
	"github.com/InnovationGarageLM/sphero-sprk/internal/version"
)

// Serve command flags
var (
	serveHost          string
	servePort          int
	serveGroups        []string
	serveRate          int
	serveCaptureDir    string
	serveName          string
	serveNoAdvertise   bool
	serveStatsInterval time.Duration
	scanTimeout        time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serversCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Interface to listen on (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "http-port", server.DefaultPort, "Port for the websocket feed")
	serveCmd.Flags().StringSliceVar(&serveGroups, "groups", []string{"imu_filtered"}, "Sensor groups to publish")
	serveCmd.Flags().IntVar(&serveRate, "rate", 0, "Samples per second (default from config)")
	serveCmd.Flags().StringVar(&serveCaptureDir, "capture-dir", "", "Directory to write JSONL captures (disabled if not specified)")
	serveCmd.Flags().StringVar(&serveName, "name", "", "Instance name to advertise (default: hostname)")
	serveCmd.Flags().BoolVar(&serveNoAdvertise, "no-advertise", false, "Do not advertise the bridge over mDNS")
	serveCmd.Flags().DurationVar(&serveStatsInterval, "stats-interval", 5*time.Second, "How often to publish link counters (0 = never)")

	serversCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for bridges")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Publish robot telemetry over websocket",
	Long: `Connect to the robot, stream the selected sensor groups and publish every
sample and orbBasic line as JSON to websocket clients on /ws.

The bridge is advertised over mDNS as ` + discovery.ServiceType + ` so other machines
can find it with 'sprk servers'.`,
	Example: `  # Publish the filtered IMU at 20 Hz
  sprk serve --port /dev/rfcomm0 --rate 20

  # Several groups, with a capture of everything sent
  sprk serve --groups imu_filtered,velocity --capture-dir ./captures`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(cmd.OutOrStdout())

	if serveCaptureDir != "" {
		if info, err := os.Stat(serveCaptureDir); err == nil && !info.IsDir() {
			return fmt.Errorf("capture path is not a directory: %s", serveCaptureDir)
		}
	}

	c, err := connect(ctx)
	if err != nil {
		p.PrintError("Telemetry bridge", err, ui.ConnectionTips)
		return err
	}
	defer c.Close()

	srv, err := server.New(&server.Config{
		Host:       serveHost,
		Port:       servePort,
		CaptureDir: serveCaptureDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	name := c.Name()
	if err := srv.Attach(name, c.Robot, serveGroups); err != nil {
		return err
	}

	rate := serveRate
	if rate == 0 {
		rate = c.Registry.Preferences.StreamRate
	}
	if err := c.Robot.UpdateStreaming(ctx, rate); err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}

	instance := serveName
	if instance == "" {
		instance, _ = os.Hostname()
	}
	port := servePort
	if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	if !serveNoAdvertise {
		ad, err := discovery.Advertise(instance, port, []string{name}, version.Version)
		if err != nil {
			return err
		}
		defer ad.Shutdown()
	}

	if serveStatsInterval > 0 {
		go srv.PublishStats(ctx, name, c.Session, serveStatsInterval)
	}

	p.PrintHeader("Telemetry bridge", "sprk serve",
		ui.Detail{Key: "Robot", Value: name},
		ui.Detail{Key: "Listening", Value: srv.Addr().String()},
		ui.Detail{Key: "Groups", Value: strings.Join(serveGroups, ", ")},
		ui.Detail{Key: "Rate", Value: strconv.Itoa(rate) + " Hz"},
		ui.Detail{Key: "Advertised", Value: strconv.FormatBool(!serveNoAdvertise)},
	)

	return srv.Start(ctx)
}

var serversCmd = &cobra.Command{
	Use:   "servers [name]",
	Short: "Find telemetry bridges on the local network",
	Long: `Find telemetry bridges on the local network.

With a name, wait for the bridge with that instance name, or the bridge
publishing a robot by that name, and print its websocket URL.`,
	Example: `  sprk servers
  sprk servers SK-1234 --timeout 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.Printf("Scanning for telemetry bridges (timeout: %s)...\n\n", scanTimeout)

		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout

		if len(args) == 1 {
			b, err := scanner.WaitForBridge(cmd.Context(), args[0])
			if err != nil {
				p.PrintResult(ui.NewWarningResult("Bridge not found",
					ui.Detail{Key: "Name", Value: args[0]},
					ui.Detail{Key: "Waited", Value: scanTimeout.String()},
				))
				return nil
			}
			p.PrintSuccess("Bridge found", bridgeDetails(b)...)
			return nil
		}

		bridges, err := scanner.ScanForBridges(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(bridges) == 0 {
			p.PrintResult(ui.NewWarningResult("No bridges found",
				ui.Detail{Key: "Service", Value: discovery.ServiceType},
				ui.Detail{Key: "Waited", Value: scanTimeout.String()},
			))
			return nil
		}

		rows := make([][]string, 0, len(bridges))
		for _, b := range bridges {
			rows = append(rows, []string{b.Instance, strings.Join(b.Robots, ", "), b.URL(), b.Version})
		}
		p.PrintTable([]string{"Bridge", "Robots", "URL", "Version"}, rows)
		return nil
	},
}

func bridgeDetails(b *discovery.Bridge) []ui.Detail {
	robots := strings.Join(b.Robots, ", ")
	if robots == "" {
		robots = "none"
	}
	return []ui.Detail{
		{Key: "Bridge", Value: b.Instance},
		{Key: "URL", Value: b.URL()},
		{Key: "Robots", Value: robots},
		{Key: "Version", Value: b.Version},
	}
}
