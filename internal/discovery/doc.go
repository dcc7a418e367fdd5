// Package discovery finds sensors on the local network with mDNS.
//
// The device side calls Advertise at startup to publish a
// "_homesensor._tcp" service named "home-sensor-<name>" with TXT records
// carrying its id and firmware version. The sensor-cfg client uses a
// Scanner to browse for those services.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Printf("Found: %s\n", d)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Sensors must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
