package config

import (
	"fmt"
	"time"

	"github.com/muurk/monitorminer/internal/protocol"
)

// Settings is the daemon configuration file. It describes how this controller
// is wired to its hardware and network; the user-facing device configuration
// (Wi-Fi credentials, names) lives in the persistent config store instead.
type Settings struct {
	Version     int               `yaml:"version"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	HTTP        HTTPSettings      `yaml:"http"`
	Storage     StorageSettings   `yaml:"storage"`
	Cache       CacheSettings     `yaml:"cache"`
	Watchdog    WatchdogSettings  `yaml:"watchdog"`
	Hardware    HardwareSettings  `yaml:"hardware"`
	Uplink      UplinkSettings    `yaml:"uplink"`
	MDNS        MDNSSettings      `yaml:"mdns"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// HTTPSettings controls the request engine.
type HTTPSettings struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ChunkSize       int           `yaml:"chunk_size"`
	ChunkDelay      time.Duration `yaml:"chunk_delay"`
	MaxRequestBytes int           `yaml:"max_request_bytes"`
	CORS            bool          `yaml:"cors"`
}

// StorageSettings locates persisted documents and static assets.
type StorageSettings struct {
	DataDir string `yaml:"data_dir"`
	WebDir  string `yaml:"web_dir"`
}

// CacheSettings bounds the static response cache.
type CacheSettings struct {
	MaxEntries    int  `yaml:"max_entries"`
	MaxBytes      int  `yaml:"max_bytes"`
	MaxEntryBytes int  `yaml:"max_entry_bytes"`
	Gzip          bool `yaml:"gzip"`
}

// WatchdogSettings selects the fault timer. An empty Device uses the
// in-process timer.
type WatchdogSettings struct {
	Device  string        `yaml:"device,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// HardwareSettings selects the HAL backend ("sim" or "serial").
type HardwareSettings struct {
	Backend    string `yaml:"backend"`
	SerialPort string `yaml:"serial_port,omitempty"`
	Baud       int    `yaml:"baud,omitempty"`
}

// UplinkSettings configures optional telemetry publishing ("none", "nats", "mqtt").
type UplinkSettings struct {
	Kind     string        `yaml:"kind"`
	URL      string        `yaml:"url,omitempty"`
	Subject  string        `yaml:"subject,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// MDNSSettings toggles service advertisement while joined.
type MDNSSettings struct {
	Enabled bool `yaml:"enabled"`
}

// MaintenanceConfig tunes idle-time housekeeping.
type MaintenanceConfig struct {
	Interval      time.Duration `yaml:"interval"`
	HeapSoftLimit uint64        `yaml:"heap_soft_limit"`
	CacheIdleTTL  time.Duration `yaml:"cache_idle_ttl"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Version:  1,
		LogLevel: "info",
		HTTP: HTTPSettings{
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			PollInterval:    50 * time.Millisecond,
			ChunkSize:       512,
			ChunkDelay:      10 * time.Millisecond,
			MaxRequestBytes: 4096,
			CORS:            true,
		},
		Storage: StorageSettings{
			DataDir: "/var/lib/monitorminer",
			WebDir:  "/usr/share/monitorminer/web",
		},
		Cache: CacheSettings{
			MaxEntries:    3,
			MaxBytes:      15000,
			MaxEntryBytes: 8192,
			Gzip:          true,
		},
		Watchdog: WatchdogSettings{
			Timeout: 15 * time.Second,
		},
		Hardware: HardwareSettings{
			Backend: "sim",
			Baud:    115200,
		},
		Uplink: UplinkSettings{
			Kind:     "none",
			Subject:  "monitorminer.telemetry",
			Interval: 30 * time.Second,
		},
		MDNS: MDNSSettings{Enabled: true},
		Maintenance: MaintenanceConfig{
			Interval:      30 * time.Second,
			HeapSoftLimit: 32 << 20,
			CacheIdleTTL:  5 * time.Minute,
		},
	}
}

// MinWatchdogTimeout is the shortest fault timer interval these settings can
// run with: twice the longest single call that can block the loop without a
// feed (a socket read or write, or one listener poll).
func (s *Settings) MinWatchdogTimeout() time.Duration {
	return 2 * max(s.HTTP.ReadTimeout, protocol.DefaultWriteTimeout, s.HTTP.PollInterval)
}

// Validate checks the settings for values the engine cannot run with.
func (s *Settings) Validate() error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", s.Version)
	}
	if s.HTTP.Port < 0 || s.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", s.HTTP.Port)
	}
	if s.HTTP.PollInterval <= 0 {
		return fmt.Errorf("http.poll_interval must be positive")
	}
	if s.HTTP.ChunkSize <= 0 {
		return fmt.Errorf("http.chunk_size must be positive")
	}
	if s.HTTP.MaxRequestBytes < 1024 {
		return fmt.Errorf("http.max_request_bytes must be at least 1024, got %d", s.HTTP.MaxRequestBytes)
	}
	if s.Cache.MaxEntries <= 0 || s.Cache.MaxBytes <= 0 {
		return fmt.Errorf("cache limits must be positive")
	}
	if s.Cache.MaxEntryBytes > s.Cache.MaxBytes {
		return fmt.Errorf("cache.max_entry_bytes (%d) exceeds cache.max_bytes (%d)", s.Cache.MaxEntryBytes, s.Cache.MaxBytes)
	}
	if s.Watchdog.Timeout < time.Second {
		return fmt.Errorf("watchdog.timeout must be at least 1s")
	}
	if floor := s.MinWatchdogTimeout(); s.Watchdog.Timeout < floor {
		return fmt.Errorf("watchdog.timeout (%v) must be at least %v, twice the longest blocking socket call", s.Watchdog.Timeout, floor)
	}
	switch s.Hardware.Backend {
	case "sim":
	case "serial":
		if s.Hardware.SerialPort == "" {
			return fmt.Errorf("hardware.serial_port is required for the serial backend")
		}
	default:
		return fmt.Errorf("unknown hardware.backend %q (expected sim or serial)", s.Hardware.Backend)
	}
	switch s.Uplink.Kind {
	case "", "none":
	case "nats", "mqtt":
		if s.Uplink.URL == "" {
			return fmt.Errorf("uplink.url is required for %s", s.Uplink.Kind)
		}
	default:
		return fmt.Errorf("unknown uplink.kind %q", s.Uplink.Kind)
	}
	return nil
}
