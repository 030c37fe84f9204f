package config

import (
	"sort"
	"strings"
	"time"
)

// Transport kinds a robot can be reached over
const (
	TransportSerial = "serial"
	TransportBLE    = "ble"
)

// Registry represents the entire user configuration file.
// It stores known robots and application preferences.
type Registry struct {
	Version     int               `yaml:"version"`
	Robots      map[string]*Robot `yaml:"robots,omitempty"` // Keyed by address (BLE MAC/UUID or serial port path)
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Robot represents what we remember about one robot.
type Robot struct {
	Nickname  string    `yaml:"nickname,omitempty"`   // User-friendly name
	Name      string    `yaml:"name,omitempty"`       // Name the robot reports
	Transport string    `yaml:"transport,omitempty"`  // TransportSerial or TransportBLE
	BaudRate  int       `yaml:"baud_rate,omitempty"`  // Serial only
	Firmware  string    `yaml:"firmware,omitempty"`   // Last seen firmware summary
	LastColor string    `yaml:"last_color,omitempty"` // Last LED color set from this tool
	LastSeen  time.Time `yaml:"last_seen,omitempty"`  // Last connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultRobot string        `yaml:"default_robot,omitempty"`  // Address or nickname used when none is given
	Timeout      time.Duration `yaml:"timeout"`                  // Command response timeout
	StreamRate   int           `yaml:"stream_rate"`              // Sensor streaming rate in Hz
	ScanTimeout  time.Duration `yaml:"scan_timeout"`             // BLE scan timeout
	MaskTableDir string        `yaml:"mask_table_dir,omitempty"` // Directory overriding the built-in mask tables
}

// Default preference values
const (
	DefaultTimeout     = 2 * time.Second
	DefaultStreamRate  = 10
	DefaultScanTimeout = 10 * time.Second
)

func defaultPreferences() *Preferences {
	return &Preferences{
		Timeout:     DefaultTimeout,
		StreamRate:  DefaultStreamRate,
		ScanTimeout: DefaultScanTimeout,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Robots:      make(map[string]*Robot),
		Preferences: defaultPreferences(),
	}
}

// GetRobot retrieves robot metadata by address.
// Returns nil if the robot isn't in the registry.
func (r *Registry) GetRobot(addr string) *Robot {
	return r.Robots[addr]
}

// EnsureRobot ensures a robot entry exists in the registry and returns it.
func (r *Registry) EnsureRobot(addr string) *Robot {
	if r.Robots == nil {
		r.Robots = make(map[string]*Robot)
	}

	if robot, exists := r.Robots[addr]; exists {
		return robot
	}

	robot := &Robot{}
	r.Robots[addr] = robot
	return robot
}

// UpdateRobotLastSeen records a successful connection.
func (r *Registry) UpdateRobotLastSeen(addr, transport, name string) {
	robot := r.EnsureRobot(addr)
	robot.LastSeen = time.Now()
	robot.Transport = transport
	if name != "" {
		robot.Name = name
	}
}

// SetRobotNickname sets a user-friendly nickname for a robot.
func (r *Registry) SetRobotNickname(addr, nickname string) {
	robot := r.EnsureRobot(addr)
	robot.Nickname = nickname
}

// Resolve maps a nickname or reported name to an address. Anything that
// matches no robot is returned unchanged, so raw addresses pass through.
// An empty ref resolves to the default robot.
func (r *Registry) Resolve(ref string) string {
	if ref == "" && r.Preferences != nil {
		ref = r.Preferences.DefaultRobot
	}
	if ref == "" {
		return ""
	}
	if _, ok := r.Robots[ref]; ok {
		return ref
	}
	for _, addr := range r.Addresses() {
		robot := r.Robots[addr]
		if strings.EqualFold(robot.Nickname, ref) || strings.EqualFold(robot.Name, ref) {
			return addr
		}
	}
	return ref
}

// Addresses returns every known address, sorted.
func (r *Registry) Addresses() []string {
	addrs := make([]string, 0, len(r.Robots))
	for addr := range r.Robots {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// DisplayName returns the nickname, the reported name or the address.
func (r *Registry) DisplayName(addr string) string {
	if robot := r.Robots[addr]; robot != nil {
		if robot.Nickname != "" {
			return robot.Nickname
		}
		if robot.Name != "" {
			return robot.Name
		}
	}
	return addr
}
