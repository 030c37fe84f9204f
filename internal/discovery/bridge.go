package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Bridge represents a telemetry bridge found on the network
type Bridge struct {
	// Instance is the advertised service instance name (e.g., "sprk-kitchen")
	Instance string

	// Hostname is the mDNS hostname of the machine running the bridge
	Hostname string

	// IP is the bridge address, IPv4 preferred
	IP string

	// Port is the websocket port
	Port int

	// Robots are the robot names the bridge publishes
	Robots []string

	// Version is the sprk version the bridge runs
	Version string

	// Metadata contains every TXT record
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("Bridge %s (%s) at %s:%d", b.Instance, strings.Join(b.Robots, ", "), b.IP, b.Port)
}

// URL returns the websocket URL of the bridge's event feed
func (b *Bridge) URL() string {
	host := b.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("ws://%s:%d/ws", host, b.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
