// Package sim is an in-process hardware backend for development and tests.
package sim

import (
	"errors"
	"math"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
)

// Radio simulates a station/AP radio.
type Radio struct {
	mu sync.Mutex

	// KnownNetworks maps SSID to password for networks the radio can join.
	KnownNetworks map[string]string
	// PollsToConnect is how many Status calls a join stays "connecting".
	PollsToConnect int
	// StationIP and Gateway are reported once connected.
	StationIP netip.Addr
	Gateway   netip.Addr
	// Visible is returned by Scan.
	Visible []hal.Network

	stationOn bool
	apOn      bool
	ssid      string
	password  string
	polls     int
	ap        hal.APConfig
}

// NewRadio returns a radio that can join the given networks.
func NewRadio(known map[string]string) *Radio {
	return &Radio{
		KnownNetworks:  known,
		PollsToConnect: 2,
		StationIP:      netip.MustParseAddr("192.168.1.50"),
		Gateway:        netip.MustParseAddr("192.168.1.1"),
	}
}

func (r *Radio) SetStation(active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active && r.apOn {
		return errors.New("sim: access point active")
	}
	r.stationOn = active
	if !active {
		r.ssid, r.password, r.polls = "", "", 0
	}
	return nil
}

func (r *Radio) Join(ssid, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stationOn {
		return errors.New("sim: station not active")
	}
	r.ssid, r.password, r.polls = ssid, password, 0
	return nil
}

func (r *Radio) Status() (hal.LinkStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stationOn || r.ssid == "" {
		return hal.LinkStatus{State: hal.LinkIdle}, nil
	}
	want, ok := r.KnownNetworks[r.ssid]
	if !ok || want != r.password {
		return hal.LinkStatus{State: hal.LinkConnecting}, nil
	}
	r.polls++
	if r.polls <= r.PollsToConnect {
		return hal.LinkStatus{State: hal.LinkConnecting}, nil
	}
	return hal.LinkStatus{State: hal.LinkConnected, IP: r.StationIP, Gateway: r.Gateway}, nil
}

func (r *Radio) StartAP(cfg hal.APConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stationOn {
		return errors.New("sim: station active")
	}
	r.apOn = true
	r.ap = cfg
	logging.Info("Simulated access point up", zap.String("ssid", cfg.SSID), zap.String("ip", cfg.IP.String()))
	return nil
}

func (r *Radio) StopAP() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apOn = false
	return nil
}

func (r *Radio) Scan() ([]hal.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hal.Network(nil), r.Visible...), nil
}

// Modes reports which radio modes are active.
func (r *Radio) Modes() (station, ap bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stationOn, r.apOn
}

// Relays simulates n relay outputs, all off at start.
type Relays struct {
	mu     sync.Mutex
	states []bool
}

// NewRelays returns n relays.
func NewRelays(n int) *Relays {
	return &Relays{states: make([]bool, n)}
}

func (r *Relays) Count() int { return len(r.states) }

func (r *Relays) State(id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.states) {
		return false, hal.ErrInvalidRelay
	}
	return r.states[id], nil
}

func (r *Relays) Set(id int, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.states) {
		return hal.ErrInvalidRelay
	}
	r.states[id] = on
	return nil
}

// Sensors produces slowly varying plausible readings.
type Sensors struct {
	start time.Time
	Now   func() time.Time
}

// NewSensors returns simulated sensors.
func NewSensors() *Sensors {
	return &Sensors{start: time.Now(), Now: time.Now}
}

func (s *Sensors) Read(kind hal.SensorKind) (hal.Reading, error) {
	t := s.Now().Sub(s.start).Seconds()
	wave := math.Sin(t / 60)
	round := func(v float64) *float64 { return hal.Value(math.Round(v*10) / 10) }

	switch kind {
	case hal.Temperature:
		return hal.Reading{"sensor1": round(24 + 2*wave), "sensor2": round(26 + 2*wave)}, nil
	case hal.Humidity:
		return hal.Reading{"sensor1": round(55 - 5*wave), "sensor2": round(52 - 5*wave)}, nil
	case hal.Current:
		return hal.Reading{
			"channel1": round(4.2 + wave),
			"channel2": round(3.9 + wave),
			"channel3": round(0.4),
			"channel4": round(0.0),
		}, nil
	default:
		return nil, errors.New("sim: unknown sensor kind")
	}
}

// NewBoard returns a complete simulated board.
func NewBoard(known map[string]string) hal.Board {
	radio := NewRadio(known)
	radio.Visible = []hal.Network{
		{SSID: "Workshop", RSSI: -48, Channel: 6, Security: 3},
		{SSID: "Workshop", RSSI: -71, Channel: 11, Security: 3},
		{SSID: "Guest", RSSI: -62, Channel: 1, Security: 0},
		{SSID: "", RSSI: -80, Channel: 3, Security: 4},
	}
	return hal.Board{
		Radio:   radio,
		Relays:  NewRelays(4),
		Sensors: NewSensors(),
		Close:   func() error { return nil },
	}
}
