// Package metrics holds the controller's Prometheus counters and renders
// them in the text exposition format for GET /metrics.
package metrics

import (
	"bytes"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds all the Prometheus metrics for the controller. Each instance
// owns its registry so tests and restarts do not collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	ParseErrorsTotal  prometheus.Counter
	HandlerPanics     prometheus.Counter
	SendAbortsTotal   prometheus.Counter
	BytesSentTotal    prometheus.Counter
	MaintenanceRuns   *prometheus.CounterVec
	WatchdogFeeds     prometheus.Counter
	UplinkPublishErrs prometheus.Counter
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "http_requests_total",
			Help:      "Total number of requests answered, by status code",
		}, []string{"code"}),
		ParseErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "http_parse_errors_total",
			Help:      "Total number of requests rejected by the parser",
		}),
		HandlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "http_handler_panics_total",
			Help:      "Total number of handler panics recovered at the connection boundary",
		}),
		SendAbortsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "http_send_aborts_total",
			Help:      "Total number of responses abandoned because the peer stopped accepting data",
		}),
		BytesSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "http_bytes_sent_total",
			Help:      "Total number of response bytes written",
		}),
		MaintenanceRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "maintenance_runs_total",
			Help:      "Total number of maintenance task runs, by task",
		}, []string{"task"}),
		WatchdogFeeds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "watchdog_feeds_total",
			Help:      "Total number of fault timer feeds",
		}),
		UplinkPublishErrs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monitorminer",
			Name:      "uplink_publish_errors_total",
			Help:      "Total number of telemetry publish errors",
		}),
	}
}

// ObserveResponse counts one answered request.
func (m *Metrics) ObserveResponse(status, bytesSent int) {
	m.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.BytesSentTotal.Add(float64(bytesSent))
}

// GaugeFunc registers a gauge whose value is read at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "monitorminer",
		Name:      name,
		Help:      help,
	}, fn)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Render gathers every collector and encodes it in the text format.
func (m *Metrics) Render() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
