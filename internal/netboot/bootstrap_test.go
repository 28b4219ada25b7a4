package netboot

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/hal"
)

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.slept += d
	return nil
}

// fakeRadio records calls and fails the test if both modes are ever active.
type fakeRadio struct {
	t *testing.T

	connectAfter int // Status polls before connecting; <0 never connects
	statusErr    error
	joinPanic    bool

	stationOn, apOn bool
	joins           int
	polls           int
	apStarts        int
	calls           []string
}

func (r *fakeRadio) check() {
	if r.stationOn && r.apOn {
		r.t.Fatalf("station and access point active together; calls=%v", r.calls)
	}
}

func (r *fakeRadio) SetStation(active bool) error {
	r.calls = append(r.calls, "station")
	r.stationOn = active
	r.check()
	return nil
}

func (r *fakeRadio) Join(ssid, password string) error {
	r.calls = append(r.calls, "join")
	r.joins++
	if r.joinPanic {
		panic("driver fault")
	}
	return nil
}

func (r *fakeRadio) Status() (hal.LinkStatus, error) {
	r.calls = append(r.calls, "status")
	r.polls++
	if r.statusErr != nil {
		return hal.LinkStatus{}, r.statusErr
	}
	if r.connectAfter >= 0 && r.polls > r.connectAfter {
		return hal.LinkStatus{
			State:   hal.LinkConnected,
			IP:      netip.MustParseAddr("10.1.2.3"),
			Gateway: netip.MustParseAddr("10.1.2.1"),
		}, nil
	}
	return hal.LinkStatus{State: hal.LinkConnecting}, nil
}

func (r *fakeRadio) StartAP(cfg hal.APConfig) error {
	r.calls = append(r.calls, "ap_start")
	r.apStarts++
	r.apOn = true
	r.check()
	return nil
}

func (r *fakeRadio) StopAP() error {
	r.calls = append(r.calls, "ap_stop")
	r.apOn = false
	return nil
}

func (r *fakeRadio) Scan() ([]hal.Network, error) { return nil, nil }

func configured(ssid string) deviceconfig.WiFiConfig {
	return deviceconfig.WiFiConfig{SSID: ssid, Password: "secret123", Configured: true}
}

func TestResolveUnconfiguredSkipsJoin(t *testing.T) {
	tests := []struct {
		name string
		wifi deviceconfig.WiFiConfig
	}{
		{"not configured", deviceconfig.WiFiConfig{SSID: "Workshop", Configured: false}},
		{"empty ssid", deviceconfig.WiFiConfig{SSID: "", Configured: true}},
		{"placeholder ssid", deviceconfig.WiFiConfig{SSID: "SuaRede", Configured: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			radio := &fakeRadio{t: t, connectAfter: 0}
			id, err := Resolve(context.Background(), tt.wifi, radio, Options{Clock: newFakeClock()})
			require.NoError(t, err)

			assert.Equal(t, ModeProvisioning, id.Mode)
			assert.Equal(t, SetupIP, id.IP)
			assert.Zero(t, radio.joins, "no join may be attempted")
			assert.Zero(t, radio.polls)
			assert.Equal(t, 1, radio.apStarts)
		})
	}
}

func TestResolveJoinedReportsInterfaceAddresses(t *testing.T) {
	radio := &fakeRadio{t: t, connectAfter: 3}
	clock := newFakeClock()
	feeds := 0

	id, err := Resolve(context.Background(), configured("Workshop"), radio, Options{
		Clock: clock,
		Feed:  func() { feeds++ },
	})
	require.NoError(t, err)

	assert.Equal(t, ModeJoined, id.Mode)
	assert.Equal(t, "10.1.2.3", id.IP.String())
	assert.Equal(t, "10.1.2.1", id.Gateway.String())
	assert.Equal(t, 3*DefaultPollInterval, clock.slept)
	assert.Equal(t, 4, feeds)
	assert.Zero(t, radio.apStarts)
	assert.True(t, radio.stationOn)
}

func TestResolveTimeoutFallsBackAfterExactlyTimeout(t *testing.T) {
	radio := &fakeRadio{t: t, connectAfter: -1}
	clock := newFakeClock()
	start := clock.Now()

	id, err := Resolve(context.Background(), configured("Workshop"), radio, Options{Clock: clock})
	require.NoError(t, err)

	assert.Equal(t, ModeProvisioning, id.Mode)
	assert.Equal(t, DefaultJoinTimeout, clock.Now().Sub(start))
	assert.Equal(t, 16, radio.polls)
	assert.False(t, radio.stationOn, "station must be off before the access point starts")
	assert.True(t, radio.apOn)

	stationOff := -1
	apStart := -1
	for i, c := range radio.calls {
		if c == "station" {
			stationOff = i
		}
		if c == "ap_start" {
			apStart = i
		}
	}
	assert.Less(t, stationOff, apStart)
}

func TestResolveUnevenPollStopsAtTimeout(t *testing.T) {
	radio := &fakeRadio{t: t, connectAfter: -1}
	clock := newFakeClock()
	start := clock.Now()

	_, err := Resolve(context.Background(), configured("Workshop"), radio, Options{
		Clock:        clock,
		JoinTimeout:  2500 * time.Millisecond,
		PollInterval: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, clock.Now().Sub(start))
}

func TestResolveDriverFailuresFallBack(t *testing.T) {
	tests := []struct {
		name  string
		radio *fakeRadio
	}{
		{"status error", &fakeRadio{connectAfter: -1, statusErr: errors.New("bus error")}},
		{"join panic", &fakeRadio{connectAfter: -1, joinPanic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.radio.t = t
			id, err := Resolve(context.Background(), configured("Workshop"), tt.radio, Options{Clock: newFakeClock()})
			require.NoError(t, err)
			assert.True(t, id.IsProvisioning())
			assert.False(t, tt.radio.stationOn)
			assert.Equal(t, 1, tt.radio.apStarts)
		})
	}
}

func TestIdentityJSON(t *testing.T) {
	id := Joined(netip.MustParseAddr("10.0.0.5"), netip.MustParseAddr("10.0.0.1"))
	b, err := id.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"joined","ip":"10.0.0.5","gateway":"10.0.0.1"}`, string(b))
}
