package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered controller on the network
type Device struct {
	// ID is the short device id from the instance name (e.g., "3f1c9a0b")
	ID string

	// Instance is the mDNS instance name (e.g., "monitorminer-3f1c9a0b")
	Instance string

	// Hostname is the host the service resolved to
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the HTTP port
	Port int

	// Version is the firmware version from the "ver" TXT record
	Version string

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Monitor Miner %s (%s) at %s:%d", d.ID, d.Instance, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
