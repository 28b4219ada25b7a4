// Package api implements the controller's HTTP surface: sensors, relays,
// configuration, Wi-Fi provisioning, system endpoints and static assets.
//
// Handlers run on the server's single event loop, one request at a time, so
// API state needs no locking.
package api

import (
	"time"

	"github.com/muurk/monitorminer/internal/assets"
	"github.com/muurk/monitorminer/internal/cache"
	"github.com/muurk/monitorminer/internal/hal"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/metrics"
	"github.com/muurk/monitorminer/internal/netboot"
	"github.com/muurk/monitorminer/internal/protocol"
	"github.com/muurk/monitorminer/internal/router"
	"github.com/muurk/monitorminer/internal/store"
)

// Restart delays applied after the response has been sent.
const (
	WiFiRestartDelay   = 2 * time.Second
	SystemRestartDelay = 1 * time.Second
)

// DefaultLogLimit is the number of log entries returned without ?limit=.
const DefaultLogLimit = 50

// Scheduler defers a device restart until the current response is out.
type Scheduler interface {
	ScheduleRestart(delay time.Duration, reason string)
}

// Deps are the collaborators handlers need. Identity is fixed for the life
// of the process.
type Deps struct {
	Identity netboot.Identity
	Store    *store.Store
	Board    hal.Board
	Assets   *assets.Assets
	Cache    *cache.Cache
	Logs     *logging.Ring
	Metrics  *metrics.Metrics
	Restarts Scheduler

	// Served reports how many requests the server has answered.
	Served func() uint64
	// Started is the boot time used for uptime.
	Started time.Time
	Now     func() time.Time
}

// API holds handler state.
type API struct {
	deps Deps

	// relayOnSince records when each relay was last switched on via the API.
	relayOnSince map[int]time.Time
}

// New returns the API over deps.
func New(deps Deps) *API {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Started.IsZero() {
		deps.Started = deps.Now()
	}
	if deps.Logs == nil {
		deps.Logs = logging.Recent()
	}
	if deps.Served == nil {
		deps.Served = func() uint64 { return 0 }
	}
	return &API{deps: deps, relayOnSince: make(map[int]time.Time)}
}

// Register adds every route to r. Order matters: the single-segment asset
// route goes last so it never shadows an API path.
func (a *API) Register(r *router.Router) {
	r.GET("/", a.landing)

	r.GET("/api/sensors", a.joinedOnly("Sensors", a.getSensors))
	r.GET("/api/sensors/:type", a.joinedOnly("Sensors", a.getSensor))

	r.GET("/api/relays", a.joinedOnly("Relays", a.getRelays))
	r.GET("/api/relays/:id", a.joinedOnly("Relays", a.getRelay))
	r.POST("/api/relays/:id", a.joinedOnly("Relays", a.setRelay))

	r.GET("/api/config", a.getConfig)
	r.POST("/api/config", a.postConfig)
	r.GET("/api/config/wifi", a.getWiFiConfig)
	r.POST("/api/config/wifi", a.postWiFiConfig)

	r.GET("/api/wifi/scan", a.scanWiFi)
	r.POST("/api/wifi/config", a.provisionWiFi)

	r.GET("/api/system/status", a.systemStatus)
	r.GET("/api/system/logs", a.systemLogs)
	r.GET("/api/system/ping", a.ping)
	r.POST("/api/system/restart", a.restart)

	if a.deps.Metrics != nil {
		r.GET("/metrics", a.metrics)
	}

	for _, prefix := range []string{"static", "css", "js", "assets"} {
		r.GET("/"+prefix+"/:file", a.prefixedAsset(prefix))
	}
	r.GET("/:file", a.rootAsset)
}

// joinedOnly answers 503 while the device serves its setup network, where
// the sensor and relay drivers are not brought up.
func (a *API) joinedOnly(what string, h router.Handler) router.Handler {
	return func(req *protocol.Request) (*protocol.Response, error) {
		if a.deps.Identity.IsProvisioning() {
			return protocol.Error(503, what+" not available in provisioning mode"), nil
		}
		return h(req)
	}
}

func (a *API) uptime() time.Duration {
	return a.deps.Now().Sub(a.deps.Started)
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(message string) *protocol.Response {
	return protocol.JSON(200, successResponse{Success: true, Message: message})
}
