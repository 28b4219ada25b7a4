// Package watchdog provides the fault timer the event loop must feed.
//
// If the timer is not fed within its interval the device is reset. On real
// hardware that is the kernel watchdog device; the Software timer models the
// same contract in-process and calls an expiry hook instead.
package watchdog

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
)

// DefaultTimeout is the fault timer interval.
const DefaultTimeout = 15 * time.Second

// FaultTimer must be fed periodically or the device resets.
type FaultTimer interface {
	Feed() error
	Close() error
}

// Software is an in-process fault timer. It runs on its own clock, so a
// stalled loop cannot prevent expiry.
type Software struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	onExpire func()
	expired  bool
	closed   bool
	feeds    uint64
}

// NewSoftware starts an armed timer. onExpire runs once, on its own
// goroutine, if Feed is not called within timeout.
func NewSoftware(timeout time.Duration, onExpire func()) *Software {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Software{timeout: timeout, onExpire: onExpire}
	s.timer = time.AfterFunc(timeout, s.fire)
	return s
}

func (s *Software) fire() {
	s.mu.Lock()
	if s.closed || s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	hook := s.onExpire
	s.mu.Unlock()

	logging.Error("Fault timer expired, requesting reset",
		zap.Duration("timeout", s.timeout),
	)
	if hook != nil {
		hook()
	}
}

// Feed re-arms the timer.
func (s *Software) Feed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("fault timer closed")
	}
	if s.expired {
		return errors.New("fault timer already expired")
	}
	s.timer.Reset(s.timeout)
	s.feeds++
	return nil
}

// Expired reports whether the timer has fired.
func (s *Software) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Feeds returns how many times the timer was fed.
func (s *Software) Feeds() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feeds
}

// Close disarms the timer.
func (s *Software) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.timer.Stop()
	return nil
}

// Device feeds a Linux watchdog character device (e.g. /dev/watchdog).
// Opening the device arms it; the interval is the driver's configured timeout.
type Device struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenDevice arms the watchdog at path.
func OpenDevice(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchdog %s: %w", path, err)
	}
	logging.Info("Hardware watchdog armed", zap.String("device", path))
	return &Device{file: f, path: path}, nil
}

// Feed writes a keepalive byte.
func (d *Device) Feed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return errors.New("watchdog closed")
	}
	if _, err := d.file.Write([]byte{'k'}); err != nil {
		return fmt.Errorf("watchdog keepalive: %w", err)
	}
	return nil
}

// Close disarms the device with the magic close character, where the driver
// allows it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	_, _ = d.file.Write([]byte{'V'})
	err := d.file.Close()
	d.file = nil
	return err
}
