package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/config"
	"github.com/InnovationGarageLM/sphero-sprk/internal/transport"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
)

var bleScanTimeout time.Duration

func init() {
	rootCmd.AddCommand(robotsCmd)
	robotsCmd.AddCommand(nicknameCmd)
	robotsCmd.AddCommand(defaultCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(portsCmd)

	scanCmd.Flags().DurationVar(&bleScanTimeout, "timeout", 0, "How long to scan (default from config)")
}

var robotsCmd = &cobra.Command{
	Use:   "robots",
	Short: "List known robots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())

		addrs := reg.Addresses()
		if len(addrs) == 0 {
			p.Println("No robots known yet. Connect once with --port or --ble.")
			return nil
		}

		rows := make([][]string, 0, len(addrs))
		for _, addr := range addrs {
			r := reg.GetRobot(addr)
			def := ""
			if reg.Resolve("") == addr {
				def = ui.SuccessMarker
			}
			rows = append(rows, []string{def, reg.DisplayName(addr), addr, r.Transport, r.Firmware, lastSeen(r.LastSeen)})
		}
		p.PrintTable([]string{"", "Robot", "Address", "Link", "Firmware", "Last seen"}, rows)
		return nil
	},
}

var nicknameCmd = &cobra.Command{
	Use:   "nickname <address|name> <nickname>",
	Short: "Give a robot a nickname",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		addr := reg.Resolve(args[0])
		reg.SetRobotNickname(addr, args[1])
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Nickname saved",
			ui.Detail{Key: "Address", Value: addr},
			ui.Detail{Key: "Nickname", Value: args[1]},
		)
		return nil
	},
}

var defaultCmd = &cobra.Command{
	Use:   "default <address|nickname>",
	Short: "Use a robot when no connection flag is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		addr := reg.Resolve(args[0])
		if reg.GetRobot(addr) == nil {
			return fmt.Errorf("unknown robot %q: connect to it once first", args[0])
		}
		reg.Preferences.DefaultRobot = addr
		if err := reg.Save(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Default robot set",
			ui.Detail{Key: "Robot", Value: reg.DisplayName(addr)},
		)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for robots advertising over BLE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		d := bleScanTimeout
		if d <= 0 {
			d = reg.Preferences.ScanTimeout
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.Printf("Scanning for robots (timeout: %s)...\n\n", d)

		ctx, cancel := context.WithTimeout(cmd.Context(), d)
		defer cancel()
		ads, err := transport.ScanBLE(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(ads) == 0 {
			p.PrintResult(ui.NewWarningResult("No robots found",
				ui.Detail{Key: "Hint", Value: "Tap the robot to wake it"},
			))
			return nil
		}

		sort.Slice(ads, func(i, j int) bool { return ads[i].RSSI > ads[j].RSSI })
		rows := make([][]string, 0, len(ads))
		for _, ad := range ads {
			rows = append(rows, []string{ad.Name, ad.Address, strconv.Itoa(int(ad.RSSI))})
		}
		p.PrintTable([]string{"Name", "Address", "RSSI"}, rows)
		p.Println("Connect with: sprk ping --ble <address>")
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		p := ui.NewPrinter(cmd.OutOrStdout())
		if len(ports) == 0 {
			p.Println("No serial ports found. Pair the robot and bind it with rfcomm first.")
			return nil
		}
		for _, port := range ports {
			p.Println(port)
		}
		return nil
	},
}

func lastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
