package uplink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
)

const mqttConnectTimeout = 5 * time.Second

// MQTT publishes to a topic at QoS 0.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// DialMQTT connects to the broker at url (e.g. tcp://broker:1883).
func DialMQTT(url, topic, clientID string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logging.Warn("MQTT connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", url)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", url, err)
	}
	logging.Info("Connected to MQTT broker", zap.String("url", url), zap.String("topic", topic))
	return &MQTT{client: client, topic: topic}, nil
}

func (m *MQTT) Publish(ctx context.Context, payload []byte) error {
	token := m.client.Publish(m.topic, 0, false, payload)
	timeout := PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return errors.New("mqtt publish timed out")
	}
	return token.Error()
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
