package deviceconfig

import (
	"strings"
	"testing"
)

func TestValidateWiFiSSID(t *testing.T) {
	tests := []struct {
		name    string
		ssid    string
		wantErr bool
	}{
		{"valid", "Workshop", false},
		{"max length", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
		{"invalid utf8", "\xff\xfe", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWiFiSSID(tt.ssid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWiFiSSID(%q) error = %v, wantErr %v", tt.ssid, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("error is not a ValidationError: %T", err)
			}
		})
	}
}

func TestValidateWiFiPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"open network", "", false},
		{"min length", "12345678", false},
		{"max length", strings.Repeat("p", 63), false},
		{"too short", "1234567", true},
		{"too long", strings.Repeat("p", 64), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWiFiPassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWiFiPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name:    "full document",
			doc:     `{"wifi":{"ssid":"Net","password":"secret123","configured":true,"use_dhcp":true},"system":{"name":"Rig A"},"sensors":{"read_interval":5},"relays":{"pins":[25,26,32,27]}}`,
			wantErr: false,
		},
		{
			name:    "extra section allowed",
			doc:     `{"wifi":{"ssid":"","configured":false},"display":{"brightness":3}}`,
			wantErr: false,
		},
		{name: "missing wifi", doc: `{"system":{"name":"x"}}`, wantErr: true},
		{name: "configured wrong type", doc: `{"wifi":{"ssid":"a","configured":"yes"}}`, wantErr: true},
		{name: "interval out of range", doc: `{"wifi":{"ssid":"a","configured":true},"sensors":{"read_interval":0}}`, wantErr: true},
		{name: "too many relay pins", doc: `{"wifi":{"ssid":"a","configured":true},"relays":{"pins":[1,2,3,4,5]}}`, wantErr: true},
		{name: "open network password", doc: `{"wifi":{"ssid":"Cafe","password":"","configured":true}}`, wantErr: false},
		{name: "redacted password", doc: `{"wifi":{"ssid":"Net","password":"********","configured":true}}`, wantErr: false},
		{name: "password too short", doc: `{"wifi":{"ssid":"Net","password":"short","configured":true}}`, wantErr: true},
		{name: "password too long", doc: `{"wifi":{"ssid":"Net","password":"` + strings.Repeat("p", 64) + `","configured":true}}`, wantErr: true},
		{name: "not json", doc: `{"wifi":`, wantErr: true},
		{name: "array root", doc: `[]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsableCredentials(t *testing.T) {
	tests := []struct {
		wifi WiFiConfig
		want bool
	}{
		{WiFiConfig{SSID: "Workshop", Configured: true}, true},
		{WiFiConfig{SSID: "Workshop", Configured: false}, false},
		{WiFiConfig{SSID: "", Configured: true}, false},
		{WiFiConfig{SSID: "  ", Configured: true}, false},
		{WiFiConfig{SSID: "SuaRede", Configured: true}, false},
		{WiFiConfig{SSID: "YourNetwork", Configured: true}, false},
	}
	for _, tt := range tests {
		if got := tt.wifi.Usable(); got != tt.want {
			t.Errorf("%+v.Usable() = %v, want %v", tt.wifi, got, tt.want)
		}
	}
}

func TestRedacted(t *testing.T) {
	dc := Defaults("id-1")
	dc.WiFi.SSID = "Net"
	dc.WiFi.Password = "secret123"

	r := dc.Redacted()
	if r.WiFi.Password != RedactedPassword {
		t.Errorf("Redacted password = %q, want %q", r.WiFi.Password, RedactedPassword)
	}
	if dc.WiFi.Password != "secret123" {
		t.Errorf("original modified: %q", dc.WiFi.Password)
	}
	r.Relays.Pins[0] = 99
	if dc.Relays.Pins[0] == 99 {
		t.Error("Redacted shares relay pin slice with original")
	}
}

func TestDefaults(t *testing.T) {
	dc := Defaults("abc")
	if dc.WiFi.Configured {
		t.Error("default config must not be configured")
	}
	if !dc.System.FirstBoot || dc.System.DeviceID != "abc" || dc.System.Name != DefaultName {
		t.Errorf("System = %+v", dc.System)
	}
	if len(dc.Relays.Pins) != 4 {
		t.Errorf("Relays.Pins = %v, want 4 pins", dc.Relays.Pins)
	}
}
