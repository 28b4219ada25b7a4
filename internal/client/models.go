package client

import "time"

// Reading is one sensor sample; nil values mean the probe did not answer.
type Reading map[string]*float64

// Snapshot mirrors GET /api/sensors.
type Snapshot struct {
	Temperature Reading `json:"temperature"`
	Humidity    Reading `json:"humidity"`
	Current     Reading `json:"current"`
	Timestamp   int64   `json:"timestamp"`
}

// RelayStatus mirrors one entry of GET /api/relays.
type RelayStatus struct {
	RelayID int   `json:"relay_id"`
	State   bool  `json:"state"`
	Uptime  int64 `json:"uptime"`
}

// RelayAction mirrors the POST /api/relays/:id response.
type RelayAction struct {
	RelayID int    `json:"relay_id"`
	State   bool   `json:"state"`
	Action  string `json:"action"`
}

// Network is a single Wi-Fi scan result.
type Network struct {
	SSID     string `json:"ssid"`
	RSSI     int    `json:"rssi"`
	Channel  int    `json:"channel"`
	Security string `json:"security"`
}

// Status mirrors GET /api/system/status.
type Status struct {
	Uptime int64 `json:"uptime"`
	Memory struct {
		HeapAlloc uint64 `json:"heap_alloc"`
		HeapSys   uint64 `json:"heap_sys"`
		NumGC     uint32 `json:"num_gc"`
	} `json:"memory"`
	Network struct {
		Mode    string `json:"mode"`
		IP      string `json:"ip"`
		Gateway string `json:"gateway"`
	} `json:"network"`
	Version  string `json:"version"`
	DeviceID string `json:"device_id"`
	Requests uint64 `json:"requests"`
	Cache    *struct {
		Entries int    `json:"entries"`
		Bytes   int    `json:"bytes"`
		Hits    uint64 `json:"hits"`
		Misses  uint64 `json:"misses"`
	} `json:"cache,omitempty"`
}

// LogEntry mirrors one element of GET /api/system/logs.
type LogEntry struct {
	Time    time.Time      `json:"timestamp"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// WiFiConfig mirrors GET /api/config/wifi.
type WiFiConfig struct {
	SSID       string `json:"ssid"`
	Configured bool   `json:"configured"`
	UseDHCP    bool   `json:"use_dhcp"`
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}
