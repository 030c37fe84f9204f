package robot

import (
	"fmt"
	"strings"
)

// Summary returns a one-line description of the firmware
func (v *VersionInfo) Summary() string {
	return fmt.Sprintf("model %d hw %d, firmware %d.%d, bootloader %d.%d",
		v.MDL, v.HW, v.MSAVersion, v.MSARevision, v.BL>>4, v.BL&0x0F)
}

// FormatVersion returns the version fields as aligned lines
func (v *VersionInfo) FormatVersion() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Record Version: %d\n", v.RECV))
	b.WriteString(fmt.Sprintf("Model:          0x%02X\n", v.MDL))
	b.WriteString(fmt.Sprintf("Hardware:       %d\n", v.HW))
	b.WriteString(fmt.Sprintf("Firmware:       %d.%d\n", v.MSAVersion, v.MSARevision))
	b.WriteString(fmt.Sprintf("Bootloader:     %d.%d\n", v.BL>>4, v.BL&0x0F))

	return b.String()
}

// FormatDeviceName returns the name fields as aligned lines
func (d *DeviceName) FormatDeviceName() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Name:    %s\n", d.Name))
	if d.BTA != "" {
		b.WriteString(fmt.Sprintf("Address: %s\n", FormatBTA(d.BTA)))
	}
	if d.Color != "" {
		b.WriteString(fmt.Sprintf("Color:   %s\n", d.Color))
	}

	return b.String()
}

// FormatBTA inserts colons into a 12 digit Bluetooth address
func FormatBTA(bta string) string {
	if len(bta) != 12 {
		return bta
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, strings.ToUpper(bta[i:i+2]))
	}
	return strings.Join(parts, ":")
}
