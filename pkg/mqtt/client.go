// Copyright 2025 The Autopeer Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/floor-inspector/pkg/log"
)

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	connected atomic.Bool

	mu   sync.RWMutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:  cfg,
		subs: map[string]subscription{},
	}, nil
}

// Start hands ctx to the connection manager: cancelling it stops background
// reconnects. The first connection attempt is awaited separately.
func (c *pahoClient) Start(ctx context.Context) error {
	if c.cm != nil {
		return errors.New("mqtt client already started")
	}

	log.Info("Starting MQTT Client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, c.connectionConfig())
	if err != nil {
		return err
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) connectionConfig() autopaho.ClientConfig {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // Already validated

	cc := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectDelay),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify},
		WillMessage:                   c.willMessage(),
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError:                c.onConnectError,
		Errors:                        pahoLogger{component: "autopaho", errors: true},
		PahoErrors:                    pahoLogger{component: "paho", errors: true},
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived:  []func(paho.PublishReceived) (bool, error){c.route},
		},
	}
	if c.cfg.Debug {
		cc.Debug = pahoLogger{component: "autopaho"}
		cc.PahoDebug = pahoLogger{component: "paho"}
	}
	return cc
}

func (c *pahoClient) Disconnect(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	c.setConnected(false)
	if err := c.cm.Disconnect(ctx); err != nil {
		return err
	}
	log.Info("MQTT Client disconnected")
	return nil
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return ErrNotStarted
	}

	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return ErrNotStarted
	}

	// Registered before the SUBSCRIBE so a reconnect racing this call still
	// restores it, and so retained messages delivered with the SUBACK are routed.
	c.mu.Lock()
	c.subs[topic] = subscription{qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Info("Subscribed to topic", "topic", topic, "qos", qos)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.cm == nil {
		return ErrNotStarted
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{topic}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return ErrNotStarted
	}
	return c.connectionAwaited(c.cm.AwaitConnection(ctx))
}

// connectionAwaited marks the link up once AwaitConnection succeeds.
// autopaho releases waiters before OnConnectionUp runs, so without this a
// caller could see IsConnected report false right after a successful wait.
func (c *pahoClient) connectionAwaited(err error) error {
	if err == nil {
		c.setConnected(true)
	}
	return err
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

// setConnected records the link state and reports transitions.
func (c *pahoClient) setConnected(up bool) {
	if c.connected.Swap(up) == up {
		return
	}
	if c.cfg.OnConnectionChange != nil {
		c.cfg.OnConnectionChange(up)
	}
}

// onConnectionUp runs for the first connection and every reconnect. A clean
// session forgets subscriptions, so all of them are restored in one packet.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.setConnected(true)
	log.Info("MQTT Connection established")

	c.mu.RLock()
	restore := make([]paho.SubscribeOptions, 0, len(c.subs))
	for topic, sub := range c.subs {
		restore = append(restore, paho.SubscribeOptions{Topic: topic, QoS: sub.qos})
	}
	c.mu.RUnlock()

	if len(restore) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()
	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: restore}); err != nil {
		log.Error(err, "Failed to restore subscriptions", "count", len(restore))
		return
	}
	log.Info("Subscriptions restored", "count", len(restore))
}

func (c *pahoClient) onConnectError(err error) {
	c.setConnected(false)
	log.Error(err, "MQTT Connection failed")
}

func (c *pahoClient) onClientError(err error) {
	c.setConnected(false)
	log.Error(err, "MQTT Client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.setConnected(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	log.Warn("MQTT Server requested disconnect", "reasonCode", d.ReasonCode, "reason", reason)
}

// route hands a received publish to every matching handler, inline and in
// arrival order. Reception is always acknowledged.
func (c *pahoClient) route(p paho.PublishReceived) (bool, error) {
	handlers := c.handlersFor(p.Packet.Topic)
	if len(handlers) == 0 {
		log.Debug("Received message on unhandled topic", "topic", p.Packet.Topic)
		return true, nil
	}

	for _, h := range handlers {
		h(context.Background(), p.Packet.Topic, p.Packet.Payload)
	}
	return true, nil
}

func (c *pahoClient) handlersFor(topic string) []MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var handlers []MessageHandler
	for filter, sub := range c.subs {
		if topicsMatch(filter, topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	return handlers
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// topicsMatch reports whether topic falls under the subscription filter,
// honouring the single-level (+) and multi-level (#) wildcards. "a/#" also
// matches "a".
func topicsMatch(filter, topic string) bool {
	for {
		fseg, frest, fmore := strings.Cut(filter, "/")
		if fseg == "#" {
			return true
		}
		tseg, trest, tmore := strings.Cut(topic, "/")
		if fseg != "+" && fseg != tseg {
			return false
		}
		if !fmore || !tmore {
			return fmore == tmore || frest == "#"
		}
		filter, topic = frest, trest
	}
}
