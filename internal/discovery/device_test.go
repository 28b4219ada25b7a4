package discovery

import "testing"

func TestDevice_String(t *testing.T) {
	device := &Device{
		ID:       "3f1c9a0b",
		Instance: "monitorminer-3f1c9a0b",
		IP:       "192.168.1.50",
		Port:     8080,
	}

	expected := "Monitor Miner 3f1c9a0b (monitorminer-3f1c9a0b) at 192.168.1.50:8080"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name:     "IPv4",
			device:   &Device{IP: "192.168.4.1", Port: 8080},
			expected: "http://192.168.4.1:8080",
		},
		{
			name:     "IPv6 is bracketed",
			device:   &Device{IP: "fe80::2", Port: 8080},
			expected: "http://[fe80::2]:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.BaseURL(); got != tt.expected {
				t.Errorf("Device.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	device := &Device{Metadata: map[string]string{"path": "/", "ver": "v2.0.0"}}
	if got := device.GetMetadata("ver"); got != "v2.0.0" {
		t.Errorf("GetMetadata(ver) = %v, want v2.0.0", got)
	}
	if got := device.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %v, want empty", got)
	}
	if got := (&Device{}).GetMetadata("path"); got != "" {
		t.Errorf("GetMetadata on nil map = %v, want empty", got)
	}
}
