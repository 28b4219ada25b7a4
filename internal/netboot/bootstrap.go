// Package netboot decides, once per boot, whether the device joins the
// configured Wi-Fi network or brings up its own provisioning access point.
package netboot

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
)

// Provisioning network constants. These are fixed so a user can always find
// an unconfigured device.
const (
	SetupSSID       = "MonitorMiner_Setup"
	SetupMaxClients = 4
)

var (
	SetupIP      = netip.MustParseAddr("192.168.4.1")
	SetupNetmask = netip.MustParseAddr("255.255.255.0")
)

const (
	DefaultJoinTimeout  = 15 * time.Second
	DefaultPollInterval = 1 * time.Second
)

// ErrJoinTimeout is reported when the station does not connect in time.
var ErrJoinTimeout = errors.New("timed out joining network")

// Clock abstracts time for the join poll.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options tune Resolve. Zero values select the defaults.
type Options struct {
	JoinTimeout  time.Duration
	PollInterval time.Duration
	Clock        Clock
	// Feed is called on every poll so a running fault timer stays fed.
	Feed func()
}

func (o *Options) withDefaults() {
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = DefaultJoinTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Feed == nil {
		o.Feed = func() {}
	}
}

// SetupAP returns the access point configuration used for provisioning.
func SetupAP() hal.APConfig {
	return hal.APConfig{
		SSID:       SetupSSID,
		Open:       true,
		IP:         SetupIP,
		Netmask:    SetupNetmask,
		MaxClients: SetupMaxClients,
	}
}

// Resolve determines the network identity for this boot.
//
// Unusable credentials go straight to provisioning without touching the
// station. Otherwise the station joins and is polled until connected or the
// join timeout elapses; on timeout or any driver failure the station is shut
// down before the access point starts. An error is returned only when the
// access point itself cannot be started.
func Resolve(ctx context.Context, wifi deviceconfig.WiFiConfig, radio hal.Radio, opts Options) (Identity, error) {
	opts.withDefaults()

	if !wifi.Usable() {
		logging.Info("No usable Wi-Fi credentials, entering provisioning mode",
			zap.Bool("configured", wifi.Configured),
			zap.String("ssid", wifi.SSID),
		)
		if err := safely(func() error { return radio.SetStation(false) }); err != nil {
			logging.Warn("Failed to deactivate station", zap.Error(err))
		}
		return startProvisioning(radio)
	}

	id, err := join(ctx, wifi, radio, opts)
	if err == nil {
		logging.Info("Joined network",
			zap.String("ssid", wifi.SSID),
			zap.String("ip", id.IP.String()),
			zap.String("gateway", id.Gateway.String()),
		)
		return id, nil
	}

	logging.Warn("Station join failed, falling back to provisioning",
		zap.String("ssid", wifi.SSID),
		zap.Error(err),
	)
	if err := safely(func() error { return radio.SetStation(false) }); err != nil {
		logging.Error("Failed to deactivate station", zap.Error(err))
	}
	return startProvisioning(radio)
}

func join(ctx context.Context, wifi deviceconfig.WiFiConfig, radio hal.Radio, opts Options) (Identity, error) {
	// The access point may still be up from a previous run of the radio.
	_ = safely(radio.StopAP)

	if err := safely(func() error { return radio.SetStation(true) }); err != nil {
		return Identity{}, fmt.Errorf("activate station: %w", err)
	}
	if err := safely(func() error { return radio.Join(wifi.SSID, wifi.Password) }); err != nil {
		return Identity{}, fmt.Errorf("join %q: %w", wifi.SSID, err)
	}

	start := opts.Clock.Now()
	for {
		opts.Feed()

		var st hal.LinkStatus
		err := safely(func() error {
			var err error
			st, err = radio.Status()
			return err
		})
		if err != nil {
			return Identity{}, fmt.Errorf("link status: %w", err)
		}

		switch st.State {
		case hal.LinkConnected:
			return Joined(st.IP, st.Gateway), nil
		case hal.LinkFailed:
			return Identity{}, fmt.Errorf("radio reported join failure for %q", wifi.SSID)
		}

		elapsed := opts.Clock.Now().Sub(start)
		if elapsed >= opts.JoinTimeout {
			return Identity{}, fmt.Errorf("%w after %s", ErrJoinTimeout, elapsed)
		}
		logging.Debug("Waiting for station link",
			zap.String("state", st.State.String()),
			zap.Duration("elapsed", elapsed),
		)

		wait := opts.PollInterval
		if remaining := opts.JoinTimeout - elapsed; remaining < wait {
			wait = remaining
		}
		if err := opts.Clock.Sleep(ctx, wait); err != nil {
			return Identity{}, err
		}
	}
}

func startProvisioning(radio hal.Radio) (Identity, error) {
	cfg := SetupAP()
	if err := safely(func() error { return radio.StartAP(cfg) }); err != nil {
		return Identity{}, fmt.Errorf("failed to start provisioning access point: %w", err)
	}
	logging.Info("Provisioning access point started",
		zap.String("ssid", cfg.SSID),
		zap.String("ip", cfg.IP.String()),
	)
	return Provisioning(), nil
}

// safely converts a driver panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("radio driver panic: %v", r)
		}
	}()
	return fn()
}
