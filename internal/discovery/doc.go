// Package discovery finds sprk telemetry bridges on the local network.
//
// A bridge started with "sprk serve --advertise" registers a "_sprk._tcp"
// mDNS service whose TXT records list the robots it publishes. Scanner
// browses for those services so clients can connect without knowing the
// bridge's address.
//
// # Usage Example
//
//	ad, err := discovery.Advertise("sprk-kitchen", 8765, []string{"SK-1234"}, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	// elsewhere
//	bridges, err := discovery.NewScanner().ScanForBridges(ctx)
//	for _, b := range bridges {
//	    fmt.Println(b.Instance, b.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package discovery
