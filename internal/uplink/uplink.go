// Package uplink publishes telemetry snapshots to a message broker while the
// controller is joined. Publishing is best effort: failures are counted and
// logged, never retried inline, so a dead broker cannot stall the loop.
package uplink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/config"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/metrics"
)

// Kinds accepted in config.UplinkSettings.Kind.
const (
	KindNone = "none"
	KindNATS = "nats"
	KindMQTT = "mqtt"
)

// PublishTimeout bounds a single publish.
const PublishTimeout = 2 * time.Second

// Publisher sends one payload to the configured destination.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Noop discards everything.
type Noop struct{}

func (Noop) Publish(context.Context, []byte) error { return nil }
func (Noop) Close() error                          { return nil }

// New connects the publisher selected by settings. clientID names the
// connection on the broker.
func New(settings config.UplinkSettings, clientID string) (Publisher, error) {
	switch settings.Kind {
	case "", KindNone:
		return Noop{}, nil
	case KindNATS:
		return DialNATS(settings.URL, settings.Subject, clientID)
	case KindMQTT:
		return DialMQTT(settings.URL, settings.Subject, clientID)
	default:
		return nil, fmt.Errorf("unknown uplink kind %q", settings.Kind)
	}
}

// PublishTask returns a maintenance task that publishes read(now) as JSON.
// m may be nil.
func PublishTask(p Publisher, read func(now time.Time) any, m *metrics.Metrics) func(context.Context, time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		payload, err := json.Marshal(read(now))
		if err != nil {
			return fmt.Errorf("failed to encode telemetry: %w", err)
		}
		ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
		defer cancel()
		if err := p.Publish(ctx, payload); err != nil {
			if m != nil {
				m.UplinkPublishErrs.Inc()
			}
			return fmt.Errorf("telemetry publish failed: %w", err)
		}
		logging.Debug("Published telemetry", zap.Int("bytes", len(payload)))
		return nil
	}
}
