package watchdog

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestSoftwareExpiresWithoutFeed(t *testing.T) {
	fired := make(chan struct{})
	wd := NewSoftware(30*time.Millisecond, func() { close(fired) })
	defer wd.Close()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("reset hook did not fire")
	}
	if !wd.Expired() {
		t.Error("Expired() = false after hook fired")
	}
	if err := wd.Feed(); err == nil {
		t.Error("Feed() after expiry should fail")
	}
}

func TestSoftwareFeedingPreventsExpiry(t *testing.T) {
	var fired atomic.Bool
	wd := NewSoftware(80*time.Millisecond, func() { fired.Store(true) })
	defer wd.Close()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := wd.Feed(); err != nil {
			t.Fatalf("Feed() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if fired.Load() {
		t.Error("hook fired while being fed")
	}
	if wd.Feeds() == 0 {
		t.Error("Feeds() = 0")
	}
}

func TestSoftwareCloseDisarms(t *testing.T) {
	var fired atomic.Bool
	wd := NewSoftware(20*time.Millisecond, func() { fired.Store(true) })
	_ = wd.Close()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Error("hook fired after Close")
	}
	if err := wd.Feed(); err == nil {
		t.Error("Feed() after Close should fail")
	}
}

func TestDeviceWritesKeepaliveAndMagicClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	d, err := OpenDevice(path)
	if err != nil {
		t.Fatalf("OpenDevice() error = %v", err)
	}
	if err := d.Feed(); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Feed(); err == nil {
		t.Error("Feed() after Close should fail")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "kV" {
		t.Errorf("device content = %q, want %q", data, "kV")
	}
}
