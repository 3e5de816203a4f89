// Package telemetry connects the advisor to field devices over MQTT: sensor
// reports come in on one topic, pump commands go out on another.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config describes the broker connection.
type Config struct {
	Broker   string
	Port     int
	ClientID string
	Username string
	Password string

	// MaxConnectAttempts bounds the initial connect; 0 means retry until ctx ends.
	MaxConnectAttempts uint64
}

// MessageHandler receives raw payloads for a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client wraps a paho client, restoring subscriptions after reconnects.
type Client struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	subs      map[string]subscription
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// NewClient prepares a client; call Connect to dial the broker.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
		c.resubscribe()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect dials the broker, retrying with exponential backoff until it
// succeeds, ctx ends, or MaxConnectAttempts is exhausted.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	var bo backoff.BackOff = backoff.NewExponentialBackOff()
	if c.cfg.MaxConnectAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, c.cfg.MaxConnectAttempts-1)
	}

	operation := func() error {
		token := c.client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return errors.New("mqtt connect timeout")
		}
		if err := token.Error(); err != nil {
			c.logger.Warn("mqtt connect failed, retrying", "broker", c.cfg.Broker, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription is replayed on
// every reconnect since sessions are clean.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.subscribe(topic, qos, handler)
}

func (c *Client) subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (c *Client) resubscribe() {
	c.mu.RLock()
	subs := make(map[string]subscription, len(c.subs))
	for k, v := range c.subs {
		subs[k] = v
	}
	c.mu.RUnlock()

	for topic, s := range subs {
		// Blocking on the token inside the paho callback would deadlock.
		go func(topic string, s subscription) {
			if err := c.subscribe(topic, s.qos, s.handler); err != nil {
				c.logger.Error("mqtt resubscribe failed", "topic", topic, "error", err)
			}
		}(topic, s)
	}
}

// Publish sends payload and waits for the broker acknowledgement (QoS > 0).
func (c *Client) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	if !c.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	token := c.client.Publish(topic, qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect unsubscribes and closes the connection. Safe to call more than once.
func (c *Client) Disconnect() {
	if c.IsConnected() {
		c.mu.RLock()
		topics := make([]string, 0, len(c.subs))
		for t := range c.subs {
			topics = append(topics, t)
		}
		c.mu.RUnlock()
		if len(topics) > 0 {
			c.client.Unsubscribe(topics...).WaitTimeout(2 * time.Second)
		}
	}
	c.client.Disconnect(250)
	c.setConnected(false)
	c.logger.Info("mqtt client disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
