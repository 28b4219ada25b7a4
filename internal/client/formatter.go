package client

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Summary returns a one-line summary of the controller.
func (s *Status) Summary() string {
	return fmt.Sprintf("Monitor Miner %s @ %s (%s, FW: %s)", s.DeviceID, s.Network.IP, s.Network.Mode, s.Version)
}

// FormatStatus returns a multi-line status report.
func (s *Status) FormatStatus() string {
	var b strings.Builder

	b.WriteString("=== Controller ===\n")
	b.WriteString(fmt.Sprintf("Device ID: %s\n", s.DeviceID))
	b.WriteString(fmt.Sprintf("Firmware:  %s\n", s.Version))
	b.WriteString(fmt.Sprintf("Uptime:    %s\n", time.Duration(s.Uptime)*time.Second))
	b.WriteString(fmt.Sprintf("Requests:  %d\n", s.Requests))
	b.WriteString("\n=== Network ===\n")
	b.WriteString(fmt.Sprintf("Mode:      %s\n", s.Network.Mode))
	b.WriteString(fmt.Sprintf("IP:        %s\n", s.Network.IP))
	b.WriteString(fmt.Sprintf("Gateway:   %s\n", s.Network.Gateway))
	b.WriteString("\n=== Memory ===\n")
	b.WriteString(fmt.Sprintf("Heap:      %s / %s\n", FormatBytes(s.Memory.HeapAlloc), FormatBytes(s.Memory.HeapSys)))
	b.WriteString(fmt.Sprintf("GC runs:   %d\n", s.Memory.NumGC))
	if s.Cache != nil {
		b.WriteString(fmt.Sprintf("Cache:     %d entries, %s (%d hits, %d misses)\n",
			s.Cache.Entries, FormatBytes(uint64(s.Cache.Bytes)), s.Cache.Hits, s.Cache.Misses))
	}

	return b.String()
}

// FormatRelays renders one line per relay.
func FormatRelays(relays []RelayStatus) string {
	var b strings.Builder
	for _, r := range relays {
		state := "OFF"
		if r.State {
			state = "ON"
		}
		line := fmt.Sprintf("Relay %d: %-3s", r.RelayID, state)
		if r.State && r.Uptime > 0 {
			line += fmt.Sprintf("  (on for %s)", time.Duration(r.Uptime)*time.Second)
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}

// FormatSnapshot renders a sensor snapshot, one sensor per line.
func FormatSnapshot(s *Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Temperature: %s\n", FormatReading(s.Temperature)))
	b.WriteString(fmt.Sprintf("Humidity:    %s\n", FormatReading(s.Humidity)))
	b.WriteString(fmt.Sprintf("Current:     %s\n", FormatReading(s.Current)))
	return b.String()
}

// FormatReading renders key=value pairs sorted by key; unavailable values show as "n/a".
func FormatReading(r Reading) string {
	if len(r) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := r[k]; v != nil {
			parts = append(parts, fmt.Sprintf("%s=%.2f", k, *v))
		} else {
			parts = append(parts, k+"=n/a")
		}
	}
	return strings.Join(parts, " ")
}

// SignalBars maps RSSI to a 0-4 bar count.
func SignalBars(rssi int) int {
	switch {
	case rssi >= -55:
		return 4
	case rssi >= -67:
		return 3
	case rssi >= -75:
		return 2
	case rssi >= -85:
		return 1
	default:
		return 0
	}
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
