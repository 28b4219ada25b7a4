// Package hal defines the hardware the controller talks to: the Wi-Fi radio,
// relay outputs and sensors. Backends live in subpackages.
package hal

import (
	"errors"
	"net/netip"
)

// ErrInvalidRelay is returned for relay ids outside 0..Count()-1.
var ErrInvalidRelay = errors.New("invalid relay id")

// LinkState is the station link state reported by the radio.
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkConnecting
	LinkConnected
	LinkFailed
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LinkStatus is a snapshot of the station interface.
type LinkStatus struct {
	State   LinkState
	IP      netip.Addr
	Gateway netip.Addr
}

// APConfig describes the access point brought up for provisioning.
type APConfig struct {
	SSID       string
	Open       bool
	IP         netip.Addr
	Netmask    netip.Addr
	MaxClients int
}

// Network is one scan result.
type Network struct {
	SSID     string
	BSSID    string
	RSSI     int
	Channel  int
	Security int
}

// Radio drives the Wi-Fi hardware. Station and access point are separate
// modes; callers keep at most one of them active.
type Radio interface {
	SetStation(active bool) error
	Join(ssid, password string) error
	Status() (LinkStatus, error)
	StartAP(cfg APConfig) error
	StopAP() error
	Scan() ([]Network, error)
}

// Relays drives the relay outputs.
type Relays interface {
	Count() int
	State(id int) (bool, error)
	Set(id int, on bool) error
}

// SensorKind names a sensor family.
type SensorKind string

const (
	Temperature SensorKind = "temperature"
	Humidity    SensorKind = "humidity"
	Current     SensorKind = "current"
)

// SensorKinds lists every supported kind in display order.
var SensorKinds = []SensorKind{Temperature, Humidity, Current}

// ParseSensorKind returns the kind for s, or false.
func ParseSensorKind(s string) (SensorKind, bool) {
	for _, k := range SensorKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Reading maps channel names (sensor1, channel1, ...) to values.
// A nil value means the channel failed to read.
type Reading map[string]*float64

// Sensors reads the attached sensors.
type Sensors interface {
	Read(kind SensorKind) (Reading, error)
}

// Board bundles one backend's devices.
type Board struct {
	Radio   Radio
	Relays  Relays
	Sensors Sensors
	Close   func() error
}

// Value is a convenience for building readings.
func Value(v float64) *float64 { return &v }
