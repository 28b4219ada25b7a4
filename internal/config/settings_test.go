package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", s.HTTP.Port)
	}
	if s.Cache.MaxEntries != 3 || s.Cache.MaxBytes != 15000 || s.Cache.MaxEntryBytes != 8192 {
		t.Errorf("Cache = %+v, want 3/15000/8192", s.Cache)
	}
	if s.HTTP.PollInterval != 50*time.Millisecond {
		t.Errorf("HTTP.PollInterval = %v, want 50ms", s.HTTP.PollInterval)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitorminer.yaml")
	content := `version: 1
http:
  port: 9090
  read_timeout: 2s
watchdog:
  timeout: 20s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", s.HTTP.Port)
	}
	if s.HTTP.ReadTimeout != 2*time.Second {
		t.Errorf("HTTP.ReadTimeout = %v, want 2s", s.HTTP.ReadTimeout)
	}
	if s.Watchdog.Timeout != 20*time.Second {
		t.Errorf("Watchdog.Timeout = %v, want 20s", s.Watchdog.Timeout)
	}
	if s.HTTP.ChunkSize != 512 {
		t.Errorf("HTTP.ChunkSize = %d, want default 512", s.HTTP.ChunkSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad version", "version: 2\n", "unsupported config version"},
		{"unknown backend", "version: 1\nhardware:\n  backend: gpio\n", "unknown hardware.backend"},
		{"serial without port", "version: 1\nhardware:\n  backend: serial\n", "serial_port is required"},
		{"entry ceiling above total", "version: 1\ncache:\n  max_entry_bytes: 20000\n", "exceeds cache.max_bytes"},
		{"uplink without url", "version: 1\nuplink:\n  kind: nats\n", "uplink.url is required"},
		{"watchdog shorter than a read", "version: 1\nwatchdog:\n  timeout: 2s\n", "watchdog.timeout (2s) must be at least 10s"},
		{"read timeout outlasts watchdog", "version: 1\nhttp:\n  read_timeout: 10s\n", "must be at least 20s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWatchdogFloor(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if got := s.MinWatchdogTimeout(); got != 10*time.Second {
		t.Errorf("MinWatchdogTimeout() = %v, want 10s", got)
	}

	s.Watchdog.Timeout = 2 * time.Second
	if err := s.Validate(); err == nil {
		t.Error("Validate() accepted a 2s watchdog with a 5s read timeout")
	}

	s.HTTP.ReadTimeout = time.Second
	s.Watchdog.Timeout = 10 * time.Second
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil at the floor", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "monitorminer.yaml")
	s := Default()
	s.HTTP.Port = 8181
	s.Uplink = UplinkSettings{Kind: "mqtt", URL: "tcp://broker:1883", Subject: "mm/telemetry", Interval: time.Minute}

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.HTTP.Port != 8181 {
		t.Errorf("HTTP.Port = %d, want 8181", loaded.HTTP.Port)
	}
	if loaded.Uplink != s.Uplink {
		t.Errorf("Uplink = %+v, want %+v", loaded.Uplink, s.Uplink)
	}
}

func TestGetConfigDirOverride(t *testing.T) {
	t.Setenv(DirEnvVar, "/tmp/mm-test")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != "/tmp/mm-test" {
		t.Errorf("GetConfigDir() = %q, want /tmp/mm-test", dir)
	}
	path, _ := GetConfigPath()
	if filepath.Base(path) != "monitorminer.yaml" {
		t.Errorf("GetConfigPath() = %q", path)
	}
}
