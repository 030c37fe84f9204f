package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/InnovationGarageLM/sphero-sprk/internal/config"
	"github.com/InnovationGarageLM/sphero-sprk/internal/mask"
	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
	"github.com/InnovationGarageLM/sphero-sprk/internal/ui"
)

// Decode command flags
var (
	decodeOutbound bool
	decodeGroups   []string
)

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().BoolVar(&decodeOutbound, "outbound", false, "Decode host-to-robot command packets")
	decodeCmd.Flags().StringSliceVar(&decodeGroups, "groups", nil, "Sensor groups enabled when the data was captured")
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the sensor groups and their mask bits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		tables, err := loadTables(reg)
		if err != nil {
			return err
		}

		source := "built-in"
		if tablesDir != "" {
			source = tablesDir
		} else if reg.Preferences.MaskTableDir != "" {
			source = reg.Preferences.MaskTableDir
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Sensor tables", "sprk tables", ui.Detail{Key: "Source", Value: source})
		p.PrintTable([]string{"Table", "Group", "Mask", "Words", "Fields"}, tableRows(tables))
		return nil
	},
}

// tableRows lists every group of both tables in wire order
func tableRows(tables *mask.Tables) [][]string {
	var rows [][]string
	for _, id := range []int{mask.Table1, mask.Table2} {
		table, _ := tables.Table(id)
		for i := range table {
			g := &table[i]
			words := "?"
			if w, ok := mask.Width(g.Name); ok {
				words = strconv.Itoa(w)
			}
			rows = append(rows, []string{
				strconv.Itoa(id),
				g.Name,
				fmt.Sprintf("0x%08X", g.Bits()),
				words,
				strings.Join(g.FieldNames(), " "),
			})
		}
	}
	return rows
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode captured packet bytes",
	Long: `Split hex bytes into packets and show their fields.

Bytes may be given as one or several arguments, with or without spaces.
Inbound data (robot to host) is framed the same way the session frames it,
so several packets or a partial one are fine. With --groups, sensor data
packets are split into the given groups.`,
	Example: `  sprk decode "ff ff 00 01 01 fd"
  sprk decode ffff00020101fb --outbound
  sprk decode fffe030007000100020003ef --groups accel_raw`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHex(args)
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())

		if decodeOutbound {
			rows, err := decodeCommand(data)
			if err != nil {
				return err
			}
			p.PrintTable([]string{"Field", "Value"}, rows)
			return nil
		}

		framer := protocol.NewFramer()
		packets := framer.Feed(data)
		if len(packets) == 0 {
			return fmt.Errorf("no complete packet in %d bytes", len(data))
		}
		for _, pkt := range packets {
			p.PrintTable([]string{"Field", "Value"}, decodeInbound(pkt, decodeGroups))
		}
		if n := framer.Buffered(); n > 0 {
			p.Printf("%d trailing bytes do not form a complete packet\n", n)
		}
		return nil
	},
}

func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", ":", "", "0x", "", ",", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// decodeInbound describes a response or async packet
func decodeInbound(pkt *protocol.Packet, groups []string) [][]string {
	rows := [][]string{{"Class", pkt.Class().String()}}

	switch pkt.Class() {
	case protocol.ClassSync:
		rows = append(rows,
			[]string{"Status", protocol.GetStatusName(pkt.Status())},
			[]string{"Sequence", strconv.Itoa(int(pkt.Sequence()))},
		)
	case protocol.ClassAsync:
		rows = append(rows, []string{"Type", protocol.GetAsyncTypeName(pkt.AsyncType())})
	}

	rows = append(rows,
		[]string{"Length", strconv.Itoa(pkt.DataLen())},
		[]string{"Payload", hex.EncodeToString(pkt.Payload())},
		[]string{"Checksum", checksumState(protocol.Verify(pkt.Raw), pkt.Checksum())},
	)

	switch {
	case pkt.Class() == protocol.ClassAsync && pkt.AsyncType() == protocol.AsyncSensorData && len(groups) > 0:
		rows = append(rows, demuxRows(pkt, groups)...)
	case pkt.Class() == protocol.ClassAsync &&
		(pkt.AsyncType() == protocol.AsyncOrbBasicMessage || pkt.AsyncType() == protocol.AsyncOrbBasicError):
		rows = append(rows, []string{"Text", strings.TrimRight(string(pkt.Payload()), "\x00\r\n")})
	}
	return rows
}

// demuxRows splits a sensor payload into the given groups
func demuxRows(pkt *protocol.Packet, groups []string) [][]string {
	var rows [][]string
	active := make(map[string]func([]byte), len(groups))
	for _, g := range groups {
		name := g
		active[name] = func(data []byte) {
			rows = append(rows, []string{name, fmt.Sprint(protocol.Int16s(data))})
		}
	}
	fields := mask.Order(active)
	if err := protocol.Demux(fields, pkt); err != nil {
		rows = append(rows, []string{"Error", err.Error()})
	}
	return rows
}

// decodeCommand describes an outbound command packet:
// FF SOP2 DID CID SEQ DLEN data CHK
func decodeCommand(b []byte) ([][]string, error) {
	if len(b) < 7 || b[0] != protocol.SOP1 {
		return nil, fmt.Errorf("not a command packet: % x", b)
	}
	dlen := int(b[5])
	if dlen < 1 || 6+dlen > len(b) {
		return nil, fmt.Errorf("declared length %d does not fit %d bytes", dlen, len(b))
	}

	answer := "yes"
	if b[1] == protocol.SOP2Async {
		answer = "no"
	}
	cmd := protocol.LookupCommand(b[2], b[3])
	return [][]string{
		{"Command", cmd.String()},
		{"Device", fmt.Sprintf("0x%02X", b[2])},
		{"Code", fmt.Sprintf("0x%02X", b[3])},
		{"Sequence", strconv.Itoa(int(b[4]))},
		{"Answer", answer},
		{"Data", hex.EncodeToString(b[6 : 6+dlen-1])},
		{"Checksum", checksumState(protocol.VerifyCommand(b), b[6+dlen-1])},
	}, nil
}

func checksumState(ok bool, sum byte) string {
	if ok {
		return fmt.Sprintf("0x%02X %s", sum, ui.SuccessMarker)
	}
	return fmt.Sprintf("0x%02X %s mismatch", sum, ui.FailureMarker)
}
