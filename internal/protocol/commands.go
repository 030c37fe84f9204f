package protocol

import "fmt"

// Device IDs
const (
	DeviceCore   = 0x00
	DeviceSphero = 0x02
)

// Command identifies one robot command by device and command ID
type Command struct {
	DID  byte
	CID  byte
	Name string
}

func (c Command) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("cmd(%02x:%02x)", c.DID, c.CID)
}

// Core device commands
var (
	CmdPing          = Command{DeviceCore, 0x01, "Ping"}
	CmdVersion       = Command{DeviceCore, 0x02, "Version"}
	CmdGetDeviceName = Command{DeviceCore, 0x11, "GetDeviceName"}
)

// Sphero device commands
var (
	CmdSetHeading       = Command{DeviceSphero, 0x01, "SetHeading"}
	CmdSetStabilization = Command{DeviceSphero, 0x02, "SetStabilization"}
	CmdSetDataStreaming = Command{DeviceSphero, 0x11, "SetDataStreaming"}
	CmdConfigureLocator = Command{DeviceSphero, 0x13, "ConfigureLocator"}
	CmdSetRGBLED        = Command{DeviceSphero, 0x20, "SetRGBLED"}
	CmdSetBackLED       = Command{DeviceSphero, 0x21, "SetBackLED"}
	CmdGetRGBLED        = Command{DeviceSphero, 0x22, "GetRGBLED"}
	CmdRoll             = Command{DeviceSphero, 0x30, "Roll"}
	CmdSetRawMotors     = Command{DeviceSphero, 0x33, "SetRawMotors"}
	CmdRunMacro         = Command{DeviceSphero, 0x50, "RunMacro"}
	CmdAbortMacro       = Command{DeviceSphero, 0x55, "AbortMacro"}
	CmdEraseOrbBasic    = Command{DeviceSphero, 0x60, "EraseOrbBasic"}
	CmdAppendOrbBasic   = Command{DeviceSphero, 0x61, "AppendOrbBasic"}
	CmdExecuteOrbBasic  = Command{DeviceSphero, 0x62, "ExecuteOrbBasic"}
	CmdAbortOrbBasic    = Command{DeviceSphero, 0x63, "AbortOrbBasic"}
)

// Commands lists every known command, for lookup by name or code
var Commands = []Command{
	CmdPing, CmdVersion, CmdGetDeviceName,
	CmdSetHeading, CmdSetStabilization, CmdSetDataStreaming, CmdConfigureLocator,
	CmdSetRGBLED, CmdSetBackLED, CmdGetRGBLED, CmdRoll, CmdSetRawMotors,
	CmdRunMacro, CmdAbortMacro,
	CmdEraseOrbBasic, CmdAppendOrbBasic, CmdExecuteOrbBasic, CmdAbortOrbBasic,
}

// LookupCommand returns the known command with the given codes, or a
// nameless Command carrying them
func LookupCommand(did, cid byte) Command {
	for _, c := range Commands {
		if c.DID == did && c.CID == cid {
			return c
		}
	}
	return Command{DID: did, CID: cid}
}
