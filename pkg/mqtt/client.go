/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
)

const (
	// QoS 1 gives at-least-once delivery; every handler in the system is
	// idempotent, so duplicates are harmless.
	qosAtLeastOnce byte = 1

	connectRetryInterval = 500 * time.Millisecond
	publishTimeout       = 10 * time.Second
)

// MessageHandler receives one inbound message.
type MessageHandler func(topic string, payload []byte)

// Interface is the broker surface used by the cloud service and the daemon.
type Interface interface {
	Connect() error
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Disconnect()
}

// Client wraps a paho client with automatic reconnect and resubscription.
type Client struct {
	opts   *pahomqtt.ClientOptions
	client pahomqtt.Client

	mu   sync.Mutex
	subs map[string]MessageHandler
}

var _ Interface = (*Client)(nil)

// NewClient builds a broker client for the given configuration. clientId must
// be unique per connection or the broker will kick the older session.
func NewClient(cfg *Config, clientId string) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		subs: make(map[string]MessageHandler),
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(clientId).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval)
	opts.OnConnect = func(client pahomqtt.Client) {
		klog.Infof("connected to mqtt broker %s", cfg.BrokerURL())
		c.resubscribe()
	}
	opts.OnConnectionLost = func(client pahomqtt.Client, err error) {
		klog.ErrorS(err, "lost connection to mqtt broker")
	}
	c.opts = opts
	return c, nil
}

// Connect dials the broker and blocks until the first connection attempt
// resolves.
func (c *Client) Connect() error {
	c.client = pahomqtt.NewClient(c.opts)
	token := c.client.Connect()
	token.Wait()
	return token.Error()
}

// Publish sends payload to topic at QoS 1 and waits for the broker ack.
func (c *Client) Publish(topic string, payload []byte) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("the mqtt client is not connected")
	}
	token := c.client.Publish(topic, qosAtLeastOnce, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

// Subscribe registers handler for topic. The subscription is replayed after
// every reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("the mqtt client is not connected")
	}
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()
	return c.subscribe(topic, handler)
}

func (c *Client) subscribe(topic string, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qosAtLeastOnce, func(client pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// resubscribe replays every registered subscription after a reconnect.
func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subs {
		if err := c.subscribe(topic, handler); err != nil {
			klog.ErrorS(err, "failed to resubscribe", "topic", topic)
		}
	}
}

// Disconnect closes the connection, waiting briefly for in-flight work.
func (c *Client) Disconnect() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}
