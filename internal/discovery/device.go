package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a sensor found on the network
type Device struct {
	// ID is the sensor identifier from the "id" TXT record
	ID string

	// Instance is the mDNS instance name (e.g., "home-sensor-kitchen")
	Instance string

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 was advertised
	IP string

	// Port is the request port (typically 42069)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "id", "version", "name", "location"
	Metadata map[string]string

	// DiscoveredAt is when the sensor was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Sensor %s (%s) at %s", d.ID, d.Instance, d.Addr())
}

// Addr returns host:port for dialing
func (d *Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
