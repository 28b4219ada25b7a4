package sim

import (
	"testing"

	"github.com/muurk/monitorminer/internal/hal"
)

func TestRadioJoinSequence(t *testing.T) {
	r := NewRadio(map[string]string{"Net": "secret123"})
	r.PollsToConnect = 1

	if err := r.Join("Net", "secret123"); err == nil {
		t.Fatal("Join with station off should fail")
	}
	if err := r.SetStation(true); err != nil {
		t.Fatal(err)
	}
	if err := r.Join("Net", "secret123"); err != nil {
		t.Fatal(err)
	}

	st, _ := r.Status()
	if st.State != hal.LinkConnecting {
		t.Errorf("first poll state = %v, want connecting", st.State)
	}
	st, _ = r.Status()
	if st.State != hal.LinkConnected || st.IP != r.StationIP {
		t.Errorf("second poll = %+v, want connected with %v", st, r.StationIP)
	}
}

func TestRadioModesExclusive(t *testing.T) {
	r := NewRadio(nil)
	if err := r.SetStation(true); err != nil {
		t.Fatal(err)
	}
	if err := r.StartAP(hal.APConfig{SSID: "x"}); err == nil {
		t.Error("StartAP with station active should fail")
	}
	_ = r.SetStation(false)
	if err := r.StartAP(hal.APConfig{SSID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetStation(true); err == nil {
		t.Error("SetStation with AP active should fail")
	}
	station, ap := r.Modes()
	if station || !ap {
		t.Errorf("Modes() = %v, %v; want false, true", station, ap)
	}
}

func TestRelaysBounds(t *testing.T) {
	r := NewRelays(4)
	if err := r.Set(3, true); err != nil {
		t.Fatal(err)
	}
	if on, _ := r.State(3); !on {
		t.Error("relay 3 should be on")
	}
	if err := r.Set(4, true); err != hal.ErrInvalidRelay {
		t.Errorf("Set(4) error = %v, want ErrInvalidRelay", err)
	}
	if _, err := r.State(-1); err != hal.ErrInvalidRelay {
		t.Errorf("State(-1) error = %v, want ErrInvalidRelay", err)
	}
}

func TestSensorsAllKinds(t *testing.T) {
	s := NewSensors()
	for _, k := range hal.SensorKinds {
		r, err := s.Read(k)
		if err != nil {
			t.Fatalf("Read(%s) error = %v", k, err)
		}
		if len(r) == 0 {
			t.Errorf("Read(%s) returned no channels", k)
		}
	}
	if _, err := s.Read("pressure"); err == nil {
		t.Error("Read(pressure) should fail")
	}
}
