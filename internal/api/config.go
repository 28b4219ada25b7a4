package api

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
	"github.com/muurk/monitorminer/internal/store"
)

// loadConfig returns the stored config, or defaults when none was written.
func (a *API) loadConfig() (*deviceconfig.DeviceConfig, error) {
	cfg, err := a.deps.Store.LoadDeviceConfig()
	if errors.Is(err, store.ErrNotFound) {
		return deviceconfig.Defaults(""), nil
	}
	return cfg, err
}

// getConfig returns the whole document with the password redacted. Unknown
// sections written by clients are returned as stored.
func (a *API) getConfig(req *protocol.Request) (*protocol.Response, error) {
	raw, err := a.deps.Store.Read(store.ConfigDocument)
	if errors.Is(err, store.ErrNotFound) {
		return protocol.JSON(200, deviceconfig.Defaults("").Redacted()), nil
	}
	if err != nil {
		return nil, failed("read configuration", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, failed("decode configuration", err)
	}
	if wifi, ok := doc["wifi"].(map[string]any); ok {
		if pw, _ := wifi["password"].(string); pw != "" {
			wifi["password"] = deviceconfig.RedactedPassword
		}
	}
	return protocol.JSON(200, doc), nil
}

// postConfig replaces the whole document. The body is validated before
// anything is written, so a rejected body leaves the stored config intact.
// A missing or redacted password keeps the stored one, and a missing device
// id keeps the stored id. Credentials marked configured must pass the same
// checks as POST /api/wifi/config.
func (a *API) postConfig(req *protocol.Request) (*protocol.Response, error) {
	if err := deviceconfig.ValidateDocument(req.Body); err != nil {
		logging.Warn("Rejected configuration document", zap.Error(err))
		return protocol.Error(400, err.Error()), nil
	}

	var doc map[string]any
	if err := req.DecodeJSON(&doc); err != nil {
		return protocol.Error(400, "Invalid JSON body"), nil
	}

	current, err := a.loadConfig()
	if err != nil {
		return nil, failed("read configuration", err)
	}

	wifi := doc["wifi"].(map[string]any)
	if pw, present := wifi["password"].(string); !present || pw == deviceconfig.RedactedPassword {
		wifi["password"] = current.WiFi.Password
	}
	if configured, _ := wifi["configured"].(bool); configured {
		creds := deviceconfig.WiFiConfig{}
		creds.SSID, _ = wifi["ssid"].(string)
		creds.Password, _ = wifi["password"].(string)
		if errs := deviceconfig.ValidateWiFiConfig(&creds); len(errs) > 0 {
			logging.Warn("Rejected configuration document", zap.Error(errs[0]))
			return protocol.Error(400, errs[0].Error()), nil
		}
	}
	system, _ := doc["system"].(map[string]any)
	if system == nil {
		system = map[string]any{}
		doc["system"] = system
	}
	if id, _ := system["device_id"].(string); id == "" && current.System.DeviceID != "" {
		system["device_id"] = current.System.DeviceID
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, failed("encode configuration", err)
	}
	if err := a.deps.Store.Write(store.ConfigDocument, data); err != nil {
		return nil, failed("save configuration", err)
	}
	logging.Info("Configuration updated", zap.Int("bytes", len(data)))
	return ok("Configuration saved"), nil
}

type wifiSettings struct {
	SSID       string `json:"ssid"`
	Configured bool   `json:"configured"`
	UseDHCP    bool   `json:"use_dhcp"`
}

func (a *API) getWiFiConfig(req *protocol.Request) (*protocol.Response, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, failed("read configuration", err)
	}
	return protocol.JSON(200, wifiSettings{
		SSID:       cfg.WiFi.SSID,
		Configured: cfg.WiFi.Configured,
		UseDHCP:    cfg.WiFi.UseDHCP,
	}), nil
}

// wifiPatch carries the fields of a partial Wi-Fi update.
type wifiPatch struct {
	SSID       *string `json:"ssid"`
	Password   *string `json:"password"`
	Configured *bool   `json:"configured"`
	UseDHCP    *bool   `json:"use_dhcp"`
}

// postWiFiConfig merges the posted fields into the stored Wi-Fi section.
// Changes apply on the next boot.
func (a *API) postWiFiConfig(req *protocol.Request) (*protocol.Response, error) {
	var patch wifiPatch
	if err := req.DecodeJSON(&patch); err != nil {
		return protocol.Error(400, "Invalid JSON body"), nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, failed("read configuration", err)
	}
	if patch.SSID != nil {
		cfg.WiFi.SSID = *patch.SSID
	}
	if patch.Password != nil && *patch.Password != deviceconfig.RedactedPassword {
		cfg.WiFi.Password = *patch.Password
	}
	if patch.Configured != nil {
		cfg.WiFi.Configured = *patch.Configured
	}
	if patch.UseDHCP != nil {
		cfg.WiFi.UseDHCP = *patch.UseDHCP
	}

	if cfg.WiFi.Configured {
		if errs := deviceconfig.ValidateWiFiConfig(&cfg.WiFi); len(errs) > 0 {
			return protocol.Error(400, errs[0].Error()), nil
		}
	}
	if err := a.deps.Store.SaveDeviceConfig(cfg); err != nil {
		return nil, failed("save configuration", err)
	}
	logging.Info("Wi-Fi configuration updated", zap.String("ssid", cfg.WiFi.SSID))
	return ok("Restart to apply"), nil
}
