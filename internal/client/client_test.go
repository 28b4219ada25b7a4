package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClientWithURL(srv.URL)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient(SetupAddress, DefaultPort)
	if c.BaseURL != "http://192.168.4.1:8080" {
		t.Errorf("BaseURL = %s, want http://192.168.4.1:8080", c.BaseURL)
	}
	if c.HTTPClient == nil {
		t.Fatal("HTTPClient should not be nil")
	}
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}

	c = NewClientWithURL("http://miner.local:8080/")
	if c.BaseURL != "http://miner.local:8080" {
		t.Errorf("BaseURL = %s, want trailing slash trimmed", c.BaseURL)
	}

	c.SetTimeout(3 * time.Second)
	c.SetRetry(1, time.Second)
	if c.HTTPClient.Timeout != 3*time.Second || c.MaxRetries != 1 || c.RetryDelay != time.Second {
		t.Error("setters did not apply")
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/system/ping" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"pong":true,"timestamp":1700000000}`)
	})

	ts, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if ts.Unix() != 1700000000 {
		t.Errorf("timestamp = %d", ts.Unix())
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"uptime":3661,"memory":{"heap_alloc":2048,"heap_sys":4096,"num_gc":3},
			"network":{"mode":"joined","ip":"10.0.0.7","gateway":"10.0.0.1"},
			"version":"1.2.0","device_id":"abcd1234","requests":12,
			"cache":{"entries":2,"bytes":900,"hits":5,"misses":2}}`)
	})

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Network.IP != "10.0.0.7" || st.Memory.NumGC != 3 || st.Cache == nil || st.Cache.Hits != 5 {
		t.Errorf("unexpected status %+v", st)
	}
	if got := st.Summary(); got != "Monitor Miner abcd1234 @ 10.0.0.7 (joined, FW: 1.2.0)" {
		t.Errorf("Summary() = %q", got)
	}
	if out := st.FormatStatus(); !strings.Contains(out, "Uptime:    1h1m1s") {
		t.Errorf("FormatStatus() missing uptime:\n%s", out)
	}
}

func TestSetRelay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/relays/1" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["action"] != "on" {
			t.Errorf("action = %q", body["action"])
		}
		_, _ = io.WriteString(w, `{"relay_id":1,"state":true,"action":"on"}`)
	})

	res, err := c.SetRelay(context.Background(), 1, "on")
	if err != nil {
		t.Fatalf("SetRelay() error = %v", err)
	}
	if !res.State || res.RelayID != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	if _, err := c.SetRelay(context.Background(), 1, "flip"); err == nil {
		t.Error("expected validation error for unknown action")
	}
}

func TestHTTPErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid relay ID"}`)
	})

	_, err := c.SetRelay(context.Background(), 9, "on")
	if !IsHTTPError(err) {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	devErr := err.(*DeviceError)
	if devErr.StatusCode != 400 || devErr.Message != "Invalid relay ID" {
		t.Errorf("got %d %q", devErr.StatusCode, devErr.Message)
	}
	if IsRetryable(err) {
		t.Error("400 should not be retryable")
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"Internal server error"}`)
			return
		}
		_, _ = io.WriteString(w, `[{"ssid":"Mine","rssi":-50,"channel":6,"security":"WPA2-PSK"}]`)
	})

	nets, err := c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(nets) != 1 || nets[0].SSID != "Mine" {
		t.Errorf("unexpected networks %+v", nets)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestProvisioningModeNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Sensors not available in provisioning mode"}`)
	})

	_, err := c.Sensors(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if hint := GetTroubleshootingHint(err); !strings.Contains(hint, "provisioning mode") {
		t.Errorf("hint = %q", hint)
	}
}

func TestPostNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Restart(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestProvisionWiFi(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["ssid"] != "Home" || body["password"] != "secret123" {
			t.Errorf("body = %v", body)
		}
		_, _ = io.WriteString(w, `{"success":true,"message":"Configuration saved, restarting..."}`)
	})

	msg, err := c.ProvisionWiFi(context.Background(), "Home", "secret123")
	if err != nil {
		t.Fatalf("ProvisionWiFi() error = %v", err)
	}
	if msg != "Configuration saved, restarting..." {
		t.Errorf("message = %q", msg)
	}

	if _, err := c.ProvisionWiFi(context.Background(), "", "x"); err == nil {
		t.Error("expected validation error for empty SSID")
	}
	if _, err := c.ProvisionWiFi(context.Background(), strings.Repeat("s", 33), "x"); err == nil {
		t.Error("expected validation error for long SSID")
	}
}

func TestRelays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"relay2":false,"relay1":true,"relay3":true}`)
	})

	relays, err := c.Relays(context.Background())
	if err != nil {
		t.Fatalf("Relays() error = %v", err)
	}
	if len(relays) != 3 {
		t.Fatalf("got %d relays", len(relays))
	}
	for i, r := range relays {
		if r.RelayID != i {
			t.Errorf("relays[%d].RelayID = %d", i, r.RelayID)
		}
	}
	if !relays[0].State || relays[1].State || !relays[2].State {
		t.Errorf("unexpected states %+v", relays)
	}
}

func TestRelaysBadKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"pump":true}`)
	})

	if _, err := c.Relays(context.Background()); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"relay1":`)
	})

	_, err := c.Relays(context.Background())
	if err == nil {
		t.Fatal("expected parse error")
	}
	devErr := err.(*DeviceError)
	if devErr.Type != ErrTypeParse {
		t.Errorf("type = %v, want %v", devErr.Type, ErrTypeParse)
	}
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithURL(url)
	c.MaxRetries = 0
	_, err := c.Ping(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("network errors should be retryable")
	}
}
