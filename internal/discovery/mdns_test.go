package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantIP     string
		wantPort   int
		wantRobots []string
	}{
		{
			name: "bridge with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "sprk-kitchen"},
				HostName:      "pi.local.",
				Port:          8765,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"path=/ws", "robots=SK-1234,BB-8A2F", "version=1.2.0"},
			},
			wantIP:     "192.168.4.16",
			wantPort:   8765,
			wantRobots: []string{"SK-1234", "BB-8A2F"},
		},
		{
			name: "IPv6 fallback",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "sprk-lab"},
				Port:          9000,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"robots="},
			},
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "sprk-ghost"},
				Port:          8765,
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "sprk-ghost"},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if b != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", b)
				}
				return
			}
			if b == nil {
				t.Fatal("parseServiceEntry() returned nil")
			}
			if b.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", b.IP, tt.wantIP)
			}
			if b.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", b.Port, tt.wantPort)
			}
			if len(b.Robots) != len(tt.wantRobots) {
				t.Fatalf("Robots = %v, want %v", b.Robots, tt.wantRobots)
			}
			for i := range b.Robots {
				if b.Robots[i] != tt.wantRobots[i] {
					t.Errorf("Robots[%d] = %v, want %v", i, b.Robots[i], tt.wantRobots[i])
				}
			}
			if b.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestBridge_Metadata(t *testing.T) {
	b := parseServiceEntry(&zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "sprk-kitchen"},
		Port:          8765,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          BuildTXT([]string{"SK-1234"}, "1.2.0"),
	})
	if b == nil {
		t.Fatal("parseServiceEntry() returned nil")
	}

	if b.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", b.Version)
	}
	if got := b.GetMetadata("path"); got != "/ws" {
		t.Errorf("GetMetadata(path) = %q, want /ws", got)
	}
	if got := b.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
	if got := b.URL(); got != "ws://192.168.4.16:8765/ws" {
		t.Errorf("URL() = %q", got)
	}
	if want := "Bridge sprk-kitchen (SK-1234) at 192.168.4.16:8765"; b.String() != want {
		t.Errorf("String() = %q, want %q", b.String(), want)
	}
}

func TestBridge_URLIPv6(t *testing.T) {
	b := &Bridge{IP: "fe80::1", Port: 9000}
	if got := b.URL(); got != "ws://[fe80::1]:9000/ws" {
		t.Errorf("URL() = %q", got)
	}
}

func TestBridge_Matches(t *testing.T) {
	b := &Bridge{Instance: "sprk-kitchen", Robots: []string{"SK-1234"}}

	tests := []struct {
		name string
		want bool
	}{
		{"sprk-kitchen", true},
		{"SPRK-KITCHEN", true},
		{"sk-1234", true},
		{"BB-8", false},
	}
	for _, tt := range tests {
		if got := b.Matches(tt.name); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBridge_GetMetadataNil(t *testing.T) {
	b := &Bridge{}
	if b.GetMetadata("x") != "" {
		t.Error("GetMetadata on nil map should be empty")
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
	if DefaultScanTimeout < time.Second {
		t.Error("DefaultScanTimeout too short for mDNS")
	}
}
