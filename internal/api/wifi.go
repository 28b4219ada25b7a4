package api

import (
	"sort"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
)

// ScanResult is one visible network as shown to the operator.
type ScanResult struct {
	SSID     string `json:"ssid"`
	RSSI     int    `json:"rssi"`
	Channel  int    `json:"channel"`
	Security string `json:"security"`
}

var securityNames = map[int]string{
	0: "Open",
	1: "WEP",
	2: "WPA-PSK",
	3: "WPA2-PSK",
	4: "WPA/WPA2-PSK",
}

// SecurityName maps a driver auth mode to a display name.
func SecurityName(mode int) string {
	if name, ok := securityNames[mode]; ok {
		return name
	}
	return "WPA2"
}

// FormatScan drops hidden networks, keeps the strongest entry per SSID and
// orders the result by signal strength, strongest first.
func FormatScan(networks []hal.Network) []ScanResult {
	sorted := append([]hal.Network(nil), networks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RSSI > sorted[j].RSSI })

	seen := make(map[string]bool, len(sorted))
	out := make([]ScanResult, 0, len(sorted))
	for _, n := range sorted {
		if n.SSID == "" || seen[n.SSID] {
			continue
		}
		seen[n.SSID] = true
		out = append(out, ScanResult{
			SSID:     n.SSID,
			RSSI:     n.RSSI,
			Channel:  n.Channel,
			Security: SecurityName(n.Security),
		})
	}
	return out
}

func (a *API) scanWiFi(req *protocol.Request) (*protocol.Response, error) {
	networks, err := a.deps.Board.Radio.Scan()
	if err != nil {
		return nil, failed("scan networks", err)
	}
	results := FormatScan(networks)
	logging.Info("Wi-Fi scan complete", zap.Int("raw", len(networks)), zap.Int("networks", len(results)))
	return protocol.JSON(200, results), nil
}

type provisionRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// provisionWiFi stores new station credentials and restarts into them once
// the response has gone out.
func (a *API) provisionWiFi(req *protocol.Request) (*protocol.Response, error) {
	var body provisionRequest
	if err := req.DecodeJSON(&body); err != nil {
		return protocol.Error(400, "Invalid JSON body"), nil
	}

	wifi := deviceconfig.WiFiConfig{SSID: body.SSID, Password: body.Password, Configured: true, UseDHCP: true}
	if errs := deviceconfig.ValidateWiFiConfig(&wifi); len(errs) > 0 {
		return protocol.Error(400, errs[0].Error()), nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, failed("read configuration", err)
	}
	cfg.WiFi = wifi
	cfg.System.FirstBoot = false
	if err := a.deps.Store.SaveDeviceConfig(cfg); err != nil {
		return nil, failed("save configuration", err)
	}

	logging.Info("Wi-Fi credentials stored", zap.String("ssid", wifi.SSID))
	if a.deps.Restarts != nil {
		a.deps.Restarts.ScheduleRestart(WiFiRestartDelay, "wifi configured")
	}
	return ok("Configuration saved, restarting..."), nil
}
