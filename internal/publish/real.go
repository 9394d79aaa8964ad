package publish

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTPublisher publishes to a broker through paho. The status topic is
// retained: "online" after each connect, "offline" as the last will.
type MQTTPublisher struct {
	client paho.Client
	prefix string
	logger *slog.Logger
}

// NewMQTTPublisher connects to broker and blocks until connected or
// connectTimeout passes.
func NewMQTTPublisher(broker, clientID, prefix string, logger *slog.Logger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &MQTTPublisher{
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger.With("component", "mqtt"),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topic(TopicStatus), "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			c.Publish(p.topic(TopicStatus), 1, true, "online")
			p.logger.Info("connected to broker", "broker", broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("broker connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	if err := connect(p.client, connectTimeout); err != nil {
		return nil, err
	}
	return p, nil
}

// ErrConnectTimeout is returned when the broker did not accept the
// connection in time.
var ErrConnectTimeout = errors.New("connection timeout")

// connect waits for the first connection. On timeout the client is
// disconnected so its retry loop does not outlive the caller.
func connect(c paho.Client, timeout time.Duration) error {
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		c.Disconnect(0)
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) topic(suffix string) string {
	return p.prefix + "/" + suffix
}

func (p *MQTTPublisher) send(suffix string, qos byte, payload []byte) error {
	token := p.client.Publish(p.topic(suffix), qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", suffix)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", suffix, err)
	}
	return nil
}

func (p *MQTTPublisher) PublishSession(ev SessionEvent) error {
	payload, err := FormatSession(ev)
	if err != nil {
		return fmt.Errorf("format session payload: %w", err)
	}
	return p.send(TopicSession, 0, payload)
}

// PublishDaily uses QoS 1 since a summary is sent once per day.
func (p *MQTTPublisher) PublishDaily(s DailySummary) error {
	payload, err := FormatDaily(s)
	if err != nil {
		return fmt.Errorf("format daily payload: %w", err)
	}
	return p.send(TopicDaily, 1, payload)
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close publishes "offline" and disconnects.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Publish(p.topic(TopicStatus), 1, true, "offline").WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000)
	return nil
}
