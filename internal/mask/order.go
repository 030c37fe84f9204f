package mask

import "github.com/InnovationGarageLM/sphero-sprk/internal/protocol"

// Entry is a sensor group's position and width in a streamed packet
type Entry struct {
	Name  string
	Words int
}

// FieldOrder is the fixed order in which enabled groups appear in a sensor
// data payload, with each group's width in 16-bit words. It is protocol
// defined and independent of the order groups were enabled in.
var FieldOrder = []Entry{
	{"accel_raw", 3},
	{"gyro_raw", 3},
	{"emf_raw", 2},
	{"pwm_raw", 2},
	{"imu_filtered", 3},
	{"accel_filtered", 3},
	{"gyro_filtered", 3},
	{"emf_filtered", 2},
	{"quaternion", 4},
	{"odometer", 2},
	{"accelone", 1},
	{"velocity", 2},
}

// Width returns the width in words of a group, and whether it is known
func Width(name string) (int, bool) {
	for _, e := range FieldOrder {
		if e.Name == name {
			return e.Words, true
		}
	}
	return 0, false
}

// Order builds the demultiplexer field list for a set of active decoders,
// walking FieldOrder so the result matches the wire order. Names that are
// not in FieldOrder, and nil decoders, are skipped.
func Order(active map[string]func([]byte)) []protocol.Field {
	fields := make([]protocol.Field, 0, len(active))
	for _, e := range FieldOrder {
		decode, ok := active[e.Name]
		if !ok || decode == nil {
			continue
		}
		fields = append(fields, protocol.Field{
			Name:   e.Name,
			Words:  e.Words,
			Decode: decode,
		})
	}
	return fields
}
