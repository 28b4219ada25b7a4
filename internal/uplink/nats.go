package uplink

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
)

// NATS publishes to a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// DialNATS connects to url. The client reconnects in the background; while
// disconnected, publishes are buffered by the client up to its limit.
func DialNATS(url, subject, clientID string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name(clientID),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logging.Info("Connected to NATS", zap.String("url", url), zap.String("subject", subject))
	return &NATS{conn: nc, subject: subject}, nil
}

func (n *NATS) Publish(ctx context.Context, payload []byte) error {
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return err
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
