package serialboard

import (
	"fmt"
	"net/netip"

	"github.com/muurk/monitorminer/internal/hal"
)

// NewBoard exposes the co-processor as a hal.Board.
func NewBoard(link *Link, relayCount int) hal.Board {
	return hal.Board{
		Radio:   &Radio{link: link},
		Relays:  &Relays{link: link, count: relayCount},
		Sensors: &Sensors{link: link},
		Close:   link.Close,
	}
}

// Radio forwards radio operations to the co-processor.
type Radio struct {
	link *Link
}

type statusResult struct {
	State   string `json:"state"`
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
}

func (r *Radio) SetStation(active bool) error {
	return r.link.Call("wifi.station", map[string]bool{"active": active}, nil)
}

func (r *Radio) Join(ssid, password string) error {
	return r.link.Call("wifi.join", map[string]string{"ssid": ssid, "password": password}, nil)
}

func (r *Radio) Status() (hal.LinkStatus, error) {
	var res statusResult
	if err := r.link.Call("wifi.status", nil, &res); err != nil {
		return hal.LinkStatus{}, err
	}
	st := hal.LinkStatus{}
	switch res.State {
	case "connected":
		st.State = hal.LinkConnected
	case "connecting":
		st.State = hal.LinkConnecting
	case "failed":
		st.State = hal.LinkFailed
	default:
		st.State = hal.LinkIdle
	}
	if st.State == hal.LinkConnected {
		ip, err := netip.ParseAddr(res.IP)
		if err != nil {
			return hal.LinkStatus{}, fmt.Errorf("co-processor reported bad ip %q: %w", res.IP, err)
		}
		st.IP = ip
		if gw, err := netip.ParseAddr(res.Gateway); err == nil {
			st.Gateway = gw
		}
	}
	return st, nil
}

func (r *Radio) StartAP(cfg hal.APConfig) error {
	args := map[string]any{
		"ssid":        cfg.SSID,
		"open":        cfg.Open,
		"ip":          cfg.IP.String(),
		"netmask":     cfg.Netmask.String(),
		"max_clients": cfg.MaxClients,
	}
	return r.link.Call("wifi.ap_start", args, nil)
}

func (r *Radio) StopAP() error {
	return r.link.Call("wifi.ap_stop", nil, nil)
}

func (r *Radio) Scan() ([]hal.Network, error) {
	var res []struct {
		SSID     string `json:"ssid"`
		BSSID    string `json:"bssid"`
		RSSI     int    `json:"rssi"`
		Channel  int    `json:"channel"`
		Security int    `json:"security"`
	}
	if err := r.link.Call("wifi.scan", nil, &res); err != nil {
		return nil, err
	}
	out := make([]hal.Network, 0, len(res))
	for _, n := range res {
		out = append(out, hal.Network{SSID: n.SSID, BSSID: n.BSSID, RSSI: n.RSSI, Channel: n.Channel, Security: n.Security})
	}
	return out, nil
}

// Relays forwards relay operations to the co-processor.
type Relays struct {
	link  *Link
	count int
}

func (r *Relays) Count() int { return r.count }

func (r *Relays) State(id int) (bool, error) {
	if id < 0 || id >= r.count {
		return false, hal.ErrInvalidRelay
	}
	var res struct {
		On bool `json:"on"`
	}
	if err := r.link.Call("relay.get", map[string]int{"id": id}, &res); err != nil {
		return false, err
	}
	return res.On, nil
}

func (r *Relays) Set(id int, on bool) error {
	if id < 0 || id >= r.count {
		return hal.ErrInvalidRelay
	}
	return r.link.Call("relay.set", map[string]any{"id": id, "on": on}, nil)
}

// Sensors forwards sensor reads to the co-processor.
type Sensors struct {
	link *Link
}

func (s *Sensors) Read(kind hal.SensorKind) (hal.Reading, error) {
	var res hal.Reading
	if err := s.link.Call("sensor.read", map[string]string{"kind": string(kind)}, &res); err != nil {
		return nil, err
	}
	return res, nil
}
