package deviceconfig

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RedactedPassword replaces the Wi-Fi password in documents returned to clients.
// Posting it back keeps the stored password.
const RedactedPassword = "********"

// DefaultName is the system name written on first boot.
const DefaultName = "Monitor Miner"

// placeholderSSIDs are values shipped in sample configs that never name a
// real network.
var placeholderSSIDs = map[string]bool{
	"suarede":     true,
	"yournetwork": true,
	"your_ssid":   true,
	"ssid":        true,
	"changeme":    true,
}

// DeviceConfig is the persisted device configuration document.
//
// Example JSON:
//
//	{
//	  "wifi": {"ssid": "Workshop", "password": "secret123", "configured": true, "use_dhcp": true},
//	  "system": {"name": "Monitor Miner", "device_id": "3f1c...", "first_boot": false},
//	  "sensors": {"read_interval": 5},
//	  "relays": {"pins": [25, 26, 32, 27]}
//	}
type DeviceConfig struct {
	WiFi    WiFiConfig    `json:"wifi"`
	System  SystemConfig  `json:"system"`
	Sensors SensorsConfig `json:"sensors"`
	Relays  RelaysConfig  `json:"relays"`
}

// WiFiConfig holds the station credentials.
type WiFiConfig struct {
	SSID       string `json:"ssid"`
	Password   string `json:"password"`
	Configured bool   `json:"configured"`
	UseDHCP    bool   `json:"use_dhcp"`
}

// SystemConfig identifies the device.
type SystemConfig struct {
	Name      string `json:"name"`
	DeviceID  string `json:"device_id"`
	FirstBoot bool   `json:"first_boot"`
}

// SensorsConfig tunes sensor sampling.
type SensorsConfig struct {
	ReadInterval int `json:"read_interval"`
}

// RelaysConfig maps relay ids to output pins.
type RelaysConfig struct {
	Pins []int `json:"pins"`
}

// Defaults returns the configuration written on first boot.
func Defaults(deviceID string) *DeviceConfig {
	return &DeviceConfig{
		WiFi: WiFiConfig{
			Configured: false,
			UseDHCP:    true,
		},
		System: SystemConfig{
			Name:      DefaultName,
			DeviceID:  deviceID,
			FirstBoot: true,
		},
		Sensors: SensorsConfig{ReadInterval: 5},
		Relays:  RelaysConfig{Pins: []int{25, 26, 32, 27}},
	}
}

// IsPlaceholderSSID reports whether ssid is empty or a known sample value.
func IsPlaceholderSSID(ssid string) bool {
	s := strings.TrimSpace(ssid)
	return s == "" || placeholderSSIDs[strings.ToLower(s)]
}

// Usable reports whether the credentials are worth a join attempt.
func (w WiFiConfig) Usable() bool {
	return w.Configured && !IsPlaceholderSSID(w.SSID)
}

// Redacted returns a copy safe to hand to clients.
func (dc *DeviceConfig) Redacted() *DeviceConfig {
	out := *dc
	out.Relays.Pins = append([]int(nil), dc.Relays.Pins...)
	if out.WiFi.Password != "" {
		out.WiFi.Password = RedactedPassword
	}
	return &out
}

// ParseDeviceConfig decodes a stored document.
func ParseDeviceConfig(data []byte) (*DeviceConfig, error) {
	var dc DeviceConfig
	if err := json.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}
	return &dc, nil
}

// String returns a one-line summary for logs.
func (dc *DeviceConfig) String() string {
	return fmt.Sprintf("DeviceConfig{Name: %q, ID: %s, SSID: %q, Configured: %v}",
		dc.System.Name, dc.System.DeviceID, dc.WiFi.SSID, dc.WiFi.Configured)
}
