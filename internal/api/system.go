package api

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/cache"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/netboot"
	"github.com/muurk/monitorminer/internal/protocol"
	"github.com/muurk/monitorminer/internal/version"
)

type memoryStatus struct {
	HeapAlloc uint64 `json:"heap_alloc"`
	HeapSys   uint64 `json:"heap_sys"`
	NumGC     uint32 `json:"num_gc"`
}

type systemStatus struct {
	Uptime   int64            `json:"uptime"`
	Memory   memoryStatus     `json:"memory"`
	Network  netboot.Identity `json:"network"`
	Version  string           `json:"version"`
	DeviceID string           `json:"device_id,omitempty"`
	Cache    *cache.Stats     `json:"cache,omitempty"`
	Requests uint64           `json:"requests"`
}

func (a *API) systemStatus(req *protocol.Request) (*protocol.Response, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	status := systemStatus{
		Uptime:   int64(a.uptime().Seconds()),
		Memory:   memoryStatus{HeapAlloc: ms.HeapAlloc, HeapSys: ms.HeapSys, NumGC: ms.NumGC},
		Network:  a.deps.Identity,
		Version:  version.Version,
		Requests: a.deps.Served(),
	}
	if cfg, err := a.loadConfig(); err == nil {
		status.DeviceID = cfg.System.DeviceID
	}
	if a.deps.Cache != nil {
		stats := a.deps.Cache.Stats()
		status.Cache = &stats
	}
	return protocol.JSON(200, status), nil
}

func (a *API) systemLogs(req *protocol.Request) (*protocol.Response, error) {
	limit := req.QueryInt("limit", DefaultLogLimit)
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	entries := a.deps.Logs.Recent(limit)
	if entries == nil {
		entries = []logging.Entry{}
	}
	return protocol.JSON(200, entries), nil
}

type pong struct {
	Pong      bool  `json:"pong"`
	Timestamp int64 `json:"timestamp"`
}

func (a *API) ping(req *protocol.Request) (*protocol.Response, error) {
	return protocol.JSON(200, pong{Pong: true, Timestamp: a.deps.Now().Unix()}), nil
}

func (a *API) restart(req *protocol.Request) (*protocol.Response, error) {
	logging.Warn("Restart requested over API", zap.String("remote_addr", req.RemoteAddr))
	if a.deps.Restarts == nil {
		return protocol.Error(503, "Restart not available"), nil
	}
	a.deps.Restarts.ScheduleRestart(SystemRestartDelay, "api request")
	return ok("Restarting"), nil
}

func (a *API) metrics(req *protocol.Request) (*protocol.Response, error) {
	body, err := a.deps.Metrics.Render()
	if err != nil {
		return nil, failed("render metrics", err)
	}
	return protocol.Build(200, "text/plain; version=0.0.4; charset=utf-8", body), nil
}
