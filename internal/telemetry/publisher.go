package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/five82/inkreader/internal/state"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

// mqttClient is the subset of mqtt.Client the publisher uses.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// PublisherOptions configure a Publisher.
type PublisherOptions struct {
	Broker   string
	Prefix   string
	DeviceID string
	Store    *state.Store
	Logger   *slog.Logger
}

// Publisher mirrors the status store to MQTT.
type Publisher struct {
	client mqttClient
	topic  string
	store  *state.Store
	logger *slog.Logger
	signal chan struct{}
}

// NewPublisher builds an auto-reconnecting MQTT client for opts.Broker, e.g.
// tcp://broker.local:1883.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	broker := strings.TrimSpace(opts.Broker)
	if broker == "" {
		return nil, errors.New("mqtt broker required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	co := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("inkreader-" + opts.DeviceID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("telemetry: mqtt connected", "broker", broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("telemetry: mqtt connection lost", "broker", broker, "error", err)
		})

	return newPublisher(mqtt.NewClient(co), opts, logger)
}

func newPublisher(client mqttClient, opts PublisherOptions, logger *slog.Logger) (*Publisher, error) {
	if opts.Store == nil {
		return nil, errors.New("publisher requires a status store")
	}
	if strings.TrimSpace(opts.DeviceID) == "" {
		return nil, errors.New("publisher requires a device id")
	}
	if logger == nil {
		logger = slog.Default()
	}
	prefix := strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	if prefix == "" {
		prefix = "inkreader"
	}
	return &Publisher{
		client: client,
		topic:  fmt.Sprintf("%s/%s/status", prefix, opts.DeviceID),
		store:  opts.Store,
		logger: logger,
		signal: make(chan struct{}, 1),
	}, nil
}

// Topic returns the status topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Notify asks for a publish of the current snapshot. It never blocks;
// signals arriving while one is pending are merged.
func (p *Publisher) Notify() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Run connects and publishes on every signal until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	// With connect retry enabled the token completes only once connected;
	// publishes issued before that are queued by the client.
	p.client.Connect()
	defer p.client.Disconnect(disconnectWait)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.signal:
			if err := p.publish(); err != nil {
				p.logger.Warn("telemetry: publish failed", "topic", p.topic, "error", err)
			}
		}
	}
}

func (p *Publisher) publish() error {
	payload, err := msgpack.Marshal(p.store.Snapshot().View())
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	token := p.client.Publish(p.topic, publishQoS, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timed out after %s", publishTimeout)
	}
	return token.Error()
}
