package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/api"
	"github.com/muurk/monitorminer/internal/assets"
	"github.com/muurk/monitorminer/internal/cache"
	"github.com/muurk/monitorminer/internal/config"
	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/discovery"
	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/hal/serialboard"
	"github.com/muurk/monitorminer/internal/hal/sim"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/metrics"
	"github.com/muurk/monitorminer/internal/netboot"
	"github.com/muurk/monitorminer/internal/router"
	"github.com/muurk/monitorminer/internal/server"
	"github.com/muurk/monitorminer/internal/store"
	"github.com/muurk/monitorminer/internal/uplink"
	"github.com/muurk/monitorminer/internal/version"
	"github.com/muurk/monitorminer/internal/watchdog"
)

var (
	runLogLevel string
	runPort     int
	runDataDir  string
	runWebDir   string
	runHAL      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the controller and serve until stopped",
	Long: `Boot the controller: load the device configuration, join the stored
Wi-Fi network or start the MonitorMiner_Setup access point, then serve the
HTTP API. A restart requested over the API boots again in-process.`,
	Example: `  # Simulated hardware, state under ./data
  monitorminer run --hal sim --data-dir ./data --web-dir ./web

  # Real board on a serial co-processor
  monitorminer run --config /etc/monitorminer/monitorminer.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		settings, err := config.Load(path)
		if err != nil {
			return err
		}
		applyRunFlags(cmd, settings)
		if err := settings.Validate(); err != nil {
			return err
		}

		if err := logging.Initialize(settings.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logging.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logging.Info("Monitor Miner starting",
			zap.String("version", version.Full()),
			zap.String("config", path),
			zap.String("hal", settings.Hardware.Backend),
		)
		return runDaemon(ctx, settings)
	},
}

func init() {
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	runCmd.Flags().IntVar(&runPort, "port", 0, "HTTP port (overrides config)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory for persisted documents (overrides config)")
	runCmd.Flags().StringVar(&runWebDir, "web-dir", "", "Directory of static web assets (overrides config)")
	runCmd.Flags().StringVar(&runHAL, "hal", "", "Hardware backend: sim or serial (overrides config)")
}

// applyRunFlags lays explicitly set flags over the file settings.
func applyRunFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		s.LogLevel = runLogLevel
	}
	if flags.Changed("port") {
		s.HTTP.Port = runPort
	}
	if flags.Changed("data-dir") {
		s.Storage.DataDir = runDataDir
	}
	if flags.Changed("web-dir") {
		s.Storage.WebDir = runWebDir
	}
	if flags.Changed("hal") {
		s.Hardware.Backend = runHAL
	}
}

// runDaemon boots and serves until ctx is cancelled. The fault timer lives
// for the whole process and keeps running across in-process restarts.
func runDaemon(ctx context.Context, settings *config.Settings) error {
	timer, err := openFaultTimer(settings.Watchdog)
	if err != nil {
		return err
	}
	defer timer.Close()

	for boots := 1; ; boots++ {
		inst, err := boot(ctx, settings, timer)
		if err != nil {
			return err
		}
		logging.Info("Boot complete",
			zap.Int("boot", boots),
			zap.String("identity", inst.identity.String()),
			zap.String("addr", inst.srv.Addr().String()),
		)

		err = inst.srv.Serve(ctx)
		inst.Close()
		if server.IsRestart(err) {
			continue
		}
		return err
	}
}

func openFaultTimer(s config.WatchdogSettings) (watchdog.FaultTimer, error) {
	if s.Device != "" {
		return watchdog.OpenDevice(s.Device)
	}
	return watchdog.NewSoftware(s.Timeout, func() {
		logging.Error("Fault timer expired, resetting", zap.Duration("timeout", s.Timeout))
		logging.Sync()
		os.Exit(2)
	}), nil
}

// instance is everything one boot brought up.
type instance struct {
	identity   netboot.Identity
	srv        *server.Server
	board      hal.Board
	publisher  uplink.Publisher
	advertiser *discovery.Advertiser
}

// Close releases what boot acquired, in reverse order.
func (i *instance) Close() {
	i.advertiser.Shutdown()
	if i.publisher != nil {
		if err := i.publisher.Close(); err != nil {
			logging.Warn("Failed to close uplink", zap.Error(err))
		}
	}
	_ = i.srv.Close()
	if i.board.Close != nil {
		if err := i.board.Close(); err != nil {
			logging.Warn("Failed to close board", zap.Error(err))
		}
	}
}

// boot runs one bootstrap: stored config, network identity, handlers and
// housekeeping. The returned server is already listening.
func boot(ctx context.Context, settings *config.Settings, timer watchdog.FaultTimer) (*instance, error) {
	storage, err := store.NewDirStorage(settings.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	st, err := store.New(storage, store.DefaultReadCacheSize)
	if err != nil {
		return nil, err
	}
	cfg, created, err := st.EnsureDeviceConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load device config: %w", err)
	}
	if created {
		logging.Info("Initialized device", zap.String("device_id", cfg.System.DeviceID))
	}

	board, err := openBoard(settings.Hardware, cfg)
	if err != nil {
		return nil, err
	}
	inst := &instance{board: board}

	feed := func() {
		if timer != nil {
			_ = timer.Feed()
		}
	}
	identity, err := netboot.Resolve(ctx, cfg.WiFi, board.Radio, netboot.Options{Feed: feed})
	if err != nil {
		_ = board.Close()
		return nil, fmt.Errorf("network bootstrap failed: %w", err)
	}
	inst.identity = identity

	c, err := cache.New(cache.Limits{
		MaxEntries:    settings.Cache.MaxEntries,
		MaxBytes:      settings.Cache.MaxBytes,
		MaxEntryBytes: settings.Cache.MaxEntryBytes,
	})
	if err != nil {
		_ = board.Close()
		return nil, err
	}
	static := assets.New(os.DirFS(settings.Storage.WebDir), c, assets.Options{
		CORS: settings.HTTP.CORS,
		Gzip: settings.Cache.Gzip,
	})

	m := metrics.New()
	registerGauges(m, c)

	r := router.New()
	srv := server.New(server.Config{
		Addr:            settings.Addr(),
		PollInterval:    settings.HTTP.PollInterval,
		ReadTimeout:     settings.HTTP.ReadTimeout,
		MaxRequestBytes: settings.HTTP.MaxRequestBytes,
		CORS:            settings.HTTP.CORS,
		ChunkSize:       settings.HTTP.ChunkSize,
		ChunkDelay:      settings.HTTP.ChunkDelay,
	}, r, timer, m)
	inst.srv = srv

	api.New(api.Deps{
		Identity: identity,
		Store:    st,
		Board:    board,
		Assets:   static,
		Cache:    c,
		Logs:     logging.Recent(),
		Metrics:  m,
		Restarts: srv,
		Served:   srv.Served,
	}).Register(r)
	r.Freeze()

	every := settings.Maintenance.Interval
	srv.AddTask("gc", every, server.ReclaimMemory(settings.Maintenance.HeapSoftLimit))
	srv.AddTask("cache-trim", every, server.TrimCache(c, settings.Maintenance.CacheIdleTTL))
	srv.AddTask("log-flush", every, server.FlushLogs(logging.Recent(), st, server.LogFlushThreshold))

	if !identity.IsProvisioning() {
		readSensors := func(now time.Time) any { return api.ReadSnapshot(board.Sensors, now) }
		srv.AddTask("sensors", sensorInterval(cfg), server.PersistSnapshot(st, store.SensorsDocument, readSensors))

		pub, err := uplink.New(settings.Uplink, "monitorminer-"+cfg.System.DeviceID)
		if err != nil {
			logging.Warn("Uplink unavailable, telemetry disabled", zap.Error(err))
		} else {
			inst.publisher = pub
			srv.AddTask("uplink", settings.Uplink.Interval, uplink.PublishTask(pub, readSensors, m))
		}
	}

	if err := srv.Listen(); err != nil {
		inst.Close()
		return nil, err
	}

	if !identity.IsProvisioning() && settings.MDNS.Enabled {
		port := settings.HTTP.Port
		if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
		adv, err := discovery.Advertise(cfg.System.DeviceID, port, version.Version)
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			inst.advertiser = adv
		}
	}
	return inst, nil
}

// openBoard brings up the configured hardware backend. The simulated radio
// accepts the stored credentials so a configured device joins.
func openBoard(hw config.HardwareSettings, cfg *deviceconfig.DeviceConfig) (hal.Board, error) {
	switch hw.Backend {
	case "serial":
		link, err := serialboard.Open(hw.SerialPort, hw.Baud)
		if err != nil {
			return hal.Board{}, err
		}
		return serialboard.NewBoard(link, len(cfg.Relays.Pins)), nil
	case "sim", "":
		known := map[string]string{}
		if cfg.WiFi.Usable() {
			known[cfg.WiFi.SSID] = cfg.WiFi.Password
		}
		return sim.NewBoard(known), nil
	default:
		return hal.Board{}, errors.New("unknown hardware backend " + hw.Backend)
	}
}

func sensorInterval(cfg *deviceconfig.DeviceConfig) time.Duration {
	if cfg.Sensors.ReadInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.Sensors.ReadInterval) * time.Second
}

func registerGauges(m *metrics.Metrics, c *cache.Cache) {
	m.GaugeFunc("heap_alloc_bytes", "Bytes of allocated heap objects", func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.HeapAlloc)
	})
	m.GaugeFunc("cache_entries", "Responses held in the static cache", func() float64 {
		return float64(c.Stats().Entries)
	})
	m.GaugeFunc("cache_bytes", "Bytes held in the static cache", func() float64 {
		return float64(c.Stats().Bytes)
	})
}
