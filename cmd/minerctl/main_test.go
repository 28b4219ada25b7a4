package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/monitorminer/internal/discovery"
)

// fakeController answers the subset of the API minerctl calls.
type fakeController struct {
	mu       sync.Mutex
	mode     string
	posts    []string
	bodies   []map[string]string
	relayOn  map[int]bool
	restarts int
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodPost {
		f.posts = append(f.posts, r.URL.Path)
		body := map[string]string{}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		f.bodies = append(f.bodies, body)
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/system/status":
		_, _ = io.WriteString(w, `{"uptime":42,"memory":{"heap_alloc":1024,"heap_sys":4096,"num_gc":1},`+
			`"network":{"mode":"`+f.mode+`","ip":"192.168.4.1","gateway":"192.168.4.1"},`+
			`"version":"1.0.0","device_id":"3f1c9a0b-1111-2222-3333-444455556666","requests":7}`)
	case r.URL.Path == "/api/relays":
		_, _ = io.WriteString(w, `{"relay1":false,"relay2":true,"relay3":false,"relay4":false}`)
	case r.URL.Path == "/api/relays/2" && r.Method == http.MethodPost:
		f.relayOn[2] = true
		_, _ = io.WriteString(w, `{"relay_id":2,"state":true,"action":"on"}`)
	case r.URL.Path == "/api/wifi/config" && r.Method == http.MethodPost:
		_, _ = io.WriteString(w, `{"success":true,"message":"WiFi configured, restarting"}`)
	case r.URL.Path == "/api/system/restart":
		f.restarts++
		_, _ = io.WriteString(w, `{"success":true,"message":"Restarting"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Not found"}`)
	}
}

func startFake(t *testing.T, mode string) (*fakeController, string, string) {
	t.Helper()
	f := &fakeController{mode: mode, relayOn: map[int]bool{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return f, u.Hostname(), u.Port()
}

// execute runs minerctl with args, resetting flag state left by earlier runs.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	deviceIP, outputFormat = "", "text"
	wifiPassword, wifiOpen, noWait, assumeYes = "", false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatusInProvisioningMode(t *testing.T) {
	_, host, port := startFake(t, "provisioning")

	out, err := execute(t, "", "status", "--device", host, "--port", port)
	require.NoError(t, err)
	assert.Contains(t, out, "Monitor Miner 3f1c9a0b-1111-2222-3333-444455556666")
	assert.Contains(t, out, "provisioning mode")
	assert.NotContains(t, out, "=== Relays ===")
}

func TestStatusJoinedListsRelays(t *testing.T) {
	_, host, port := startFake(t, "joined")

	out, err := execute(t, "", "status", "--device", host, "--port", port)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Relays ===")
	assert.Contains(t, out, "Relay 1: ON")
	assert.Contains(t, out, "Relay 0: OFF")
}

func TestStatusJSON(t *testing.T) {
	_, host, port := startFake(t, "joined")

	out, err := execute(t, "", "status", "--device", host, "--port", port, "--format", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "1.0.0", decoded["version"])
}

func TestRelaySwitch(t *testing.T) {
	f, host, port := startFake(t, "joined")

	out, err := execute(t, "", "relay", "2", "on", "--device", host, "--port", port)
	require.NoError(t, err)
	assert.Contains(t, out, "Relay 2")
	require.Equal(t, []string{"/api/relays/2"}, f.posts)
	assert.Equal(t, "on", f.bodies[0]["action"])
}

func TestRelayRejectsBadAction(t *testing.T) {
	f, host, port := startFake(t, "joined")

	_, err := execute(t, "", "relay", "2", "flip", "--device", host, "--port", port)
	require.Error(t, err)
	assert.Empty(t, f.posts)
}

func TestParseRelayArgs(t *testing.T) {
	tests := []struct {
		args    []string
		id      int
		action  string
		wantErr bool
	}{
		{args: []string{"0"}, id: 0},
		{args: []string{"3", "ON"}, id: 3, action: "on"},
		{args: []string{"1", "toggle"}, id: 1, action: "toggle"},
		{args: []string{"-1"}, wantErr: true},
		{args: []string{"x"}, wantErr: true},
		{args: []string{"1", "blink"}, wantErr: true},
	}
	for _, tt := range tests {
		id, action, err := parseRelayArgs(tt.args)
		if tt.wantErr {
			assert.Error(t, err, tt.args)
			continue
		}
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.id, id)
		assert.Equal(t, tt.action, action)
	}
}

func TestWiFiSetSendsCredentials(t *testing.T) {
	f, host, port := startFake(t, "provisioning")

	out, err := execute(t, "", "wifi", "set", "Workshop", "--password", "secret123", "--no-wait",
		"--device", host, "--port", port)
	require.NoError(t, err)
	assert.Contains(t, out, "Credentials stored")

	require.Equal(t, []string{"/api/wifi/config"}, f.posts)
	assert.Equal(t, "Workshop", f.bodies[0]["ssid"])
	assert.Equal(t, "secret123", f.bodies[0]["password"])
}

func TestWiFiSetPromptsForPassword(t *testing.T) {
	f, host, port := startFake(t, "provisioning")

	_, err := execute(t, "hunter22\n", "wifi", "set", "Workshop", "--no-wait", "--device", host, "--port", port)
	require.NoError(t, err)
	require.Len(t, f.bodies, 1)
	assert.Equal(t, "hunter22", f.bodies[0]["password"])
}

func TestWiFiSetOpenNetwork(t *testing.T) {
	f, host, port := startFake(t, "provisioning")

	_, err := execute(t, "", "wifi", "set", "Guest", "--open", "--no-wait", "--device", host, "--port", port)
	require.NoError(t, err)
	require.Len(t, f.bodies, 1)
	assert.Equal(t, "", f.bodies[0]["password"])
}

func TestRestartDeclined(t *testing.T) {
	f, host, port := startFake(t, "joined")

	_, err := execute(t, "n\n", "restart", "--device", host, "--port", port)
	require.NoError(t, err)
	assert.Zero(t, f.restarts)
}

func TestRestartConfirmed(t *testing.T) {
	f, host, port := startFake(t, "joined")

	_, err := execute(t, "", "restart", "--yes", "--device", host, "--port", port)
	require.NoError(t, err)
	assert.Equal(t, 1, f.restarts)
}

func TestPickDevice(t *testing.T) {
	d, err := pickDevice(nil)
	require.NoError(t, err)
	assert.Nil(t, d)

	one := &discovery.Device{ID: "3f1c9a0b", IP: "192.168.1.50", Port: 8080}
	d, err = pickDevice([]*discovery.Device{one})
	require.NoError(t, err)
	assert.Same(t, one, d)

	two := &discovery.Device{ID: "0a0b0c0d", IP: "192.168.1.51", Port: 8080}
	_, err = pickDevice([]*discovery.Device{one, two})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "192.168.1.51")
}

func TestReadPasswordFromPipe(t *testing.T) {
	var out bytes.Buffer
	pw, err := readPassword(&out, strings.NewReader("pa ss\r\n"), "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "pa ss", pw)
	assert.Equal(t, "Password: ", out.String())

	_, err = readPassword(&out, strings.NewReader(""), "Password: ")
	assert.Error(t, err)
}
