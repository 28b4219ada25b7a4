package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/monitorminer/internal/config"
	"github.com/muurk/monitorminer/internal/store"
	"github.com/muurk/monitorminer/internal/watchdog"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.Default()
	s.HTTP.Host = "127.0.0.1"
	s.HTTP.Port = 0
	s.HTTP.ChunkDelay = 0
	s.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	s.Storage.WebDir = t.TempDir()
	s.MDNS.Enabled = false
	require.NoError(t, s.Validate())
	return s
}

func TestBootUnconfiguredServesSetupNetwork(t *testing.T) {
	settings := testSettings(t)
	require.NoError(t, os.WriteFile(filepath.Join(settings.Storage.WebDir, "index.html"), []byte("<h1>miner</h1>"), 0644))

	timer := watchdog.NewSoftware(time.Minute, nil)
	defer timer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	inst, err := boot(ctx, settings, timer)
	require.NoError(t, err)
	assert.True(t, inst.identity.IsProvisioning())
	assert.Equal(t, "192.168.4.1", inst.identity.IP.String())

	done := make(chan error, 1)
	go func() { done <- inst.srv.Serve(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
		inst.Close()
	}()

	base := "http://" + inst.srv.Addr().String()

	resp, err := http.Get(base + "/api/system/status")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Network struct {
			Mode string `json:"mode"`
		} `json:"network"`
		DeviceID string `json:"device_id"`
	}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "provisioning", status.Network.Mode)
	assert.NotEmpty(t, status.DeviceID)

	resp, err = http.Get(base + "/api/relays")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(base + "/index.html")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), "miner")

	assert.Greater(t, timer.Feeds(), uint64(0))
}

func TestBootWritesDeviceConfigOnce(t *testing.T) {
	settings := testSettings(t)
	ctx := context.Background()

	first, err := boot(ctx, settings, nil)
	require.NoError(t, err)
	first.Close()

	data, err := os.ReadFile(filepath.Join(settings.Storage.DataDir, store.ConfigDocument))
	require.NoError(t, err)
	var doc struct {
		System struct {
			DeviceID string `json:"device_id"`
		} `json:"system"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotEmpty(t, doc.System.DeviceID)

	second, err := boot(ctx, settings, nil)
	require.NoError(t, err)
	second.Close()

	again, err := os.ReadFile(filepath.Join(settings.Storage.DataDir, store.ConfigDocument))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestOpenBoardRejectsUnknownBackend(t *testing.T) {
	_, err := openBoard(config.HardwareSettings{Backend: "gpio"}, nil)
	assert.Error(t, err)
}
