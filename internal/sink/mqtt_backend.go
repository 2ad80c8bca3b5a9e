package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

var ErrTimeout = errors.New("mqtt operation timed out")

const defaultTimeout = 10 * time.Second

// MQTTBackend publishes retained messages to an MQTT broker.
type MQTTBackend struct {
	client   mqttClient
	qos      byte
	timeout  time.Duration
	liveness Liveness
	logger   zerolog.Logger

	// set after the first successful connect; later connects are reconnects
	connected atomic.Bool
}

func NewMQTTBackend(cfg *config.MQTTConfig, liveness Liveness, logger zerolog.Logger) *MQTTBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	mb := &MQTTBackend{
		qos:      byte(cfg.QoS),
		timeout:  timeout,
		liveness: liveness,
		logger:   logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(timeout).
		SetWriteTimeout(timeout).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetWill(liveness.Topic, liveness.Offline, mb.qos, true).
		SetOnConnectHandler(mb.onConnect).
		SetConnectionLostHandler(mb.onConnectionLost)
	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}

	mb.client = mqtt.NewClient(opts)
	return mb
}

func BrokerURL(host string, port int) string {
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func (mb *MQTTBackend) Connect(ctx context.Context) error {
	if err := mb.wait(ctx, mb.client.Connect()); err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	mb.connected.Store(true)
	return nil
}

func (mb *MQTTBackend) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	if err := mb.wait(ctx, mb.client.Publish(topic, mb.qos, retain, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (mb *MQTTBackend) Disconnect(_ context.Context) error {
	mb.client.Disconnect(uint(disconnectQuiesce / time.Millisecond))
	return nil
}

func (mb *MQTTBackend) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(mb.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onConnect re-announces liveness after automatic reconnects; the broker
// may have delivered the last will while the connection was down.
func (mb *MQTTBackend) onConnect(_ mqtt.Client) {
	if !mb.connected.Load() {
		return
	}
	mb.logger.Info().Msg("[mqtt_backend] Reconnected to broker")
	mb.client.Publish(mb.liveness.Topic, mb.qos, true, mb.liveness.Online)
}

func (mb *MQTTBackend) onConnectionLost(_ mqtt.Client, err error) {
	mb.logger.Warn().Err(err).Msg("[mqtt_backend] Connection to broker lost")
}
