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

package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt/topic"
)

const testIMEI = "C313A1000522B2D4"

type published struct {
	topic   string
	qos     int
	payload []byte
}

type fakeClient struct {
	startErr   error
	awaitErr   error
	publishErr error

	connected   bool
	started     bool
	disconnects int
	published   []published
	handlers    map[string]mqtt.MessageHandler
}

var _ mqtt.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) Start(context.Context) error {
	c.started = true
	return c.startErr
}

func (c *fakeClient) AwaitConnection(context.Context) error {
	if c.awaitErr != nil {
		return c.awaitErr
	}
	c.connected = true
	return nil
}

func (c *fakeClient) Disconnect(context.Context) error {
	c.disconnects++
	c.connected = false
	return nil
}

func (c *fakeClient) Publish(_ context.Context, topic string, qos int, _ bool, payload []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func (c *fakeClient) Subscribe(_ context.Context, topic string, _ int, handler mqtt.MessageHandler) error {
	c.handlers[topic] = handler
	return nil
}

func (c *fakeClient) Unsubscribe(_ context.Context, topic string) error {
	delete(c.handlers, topic)
	return nil
}

func (c *fakeClient) IsConnected() bool { return c.connected }

// deliver simulates the broker pushing a publish to the device.
func (c *fakeClient) deliver(topic string, payload []byte) {
	if h, ok := c.handlers[topic]; ok {
		h(context.Background(), topic, payload)
	}
}

type fakeNetwork struct {
	visible []string
	// reachable maps an SSID to the number of IsConnected checks before it
	// reports an association.
	reachable map[string]int

	alreadyConnected bool
	connectErr       error

	scans    int
	requests []string
	pending  int
	joined   string
}

var (
	_ core.Network      = (*fakeNetwork)(nil)
	_ core.LinkReporter = (*fakeNetwork)(nil)
)

func (n *fakeNetwork) Scan(context.Context) ([]string, error) {
	n.scans++
	return n.visible, nil
}

func (n *fakeNetwork) Connect(_ context.Context, ssid, _ string) error {
	n.requests = append(n.requests, ssid)
	if n.connectErr != nil {
		return n.connectErr
	}
	checks, ok := n.reachable[ssid]
	if !ok {
		n.pending = -1
		return nil
	}
	n.pending = checks
	n.joined = ssid
	return nil
}

func (n *fakeNetwork) IsConnected(context.Context) (bool, error) {
	if n.alreadyConnected {
		return true, nil
	}
	if n.pending < 0 || n.joined == "" {
		return false, nil
	}
	if n.pending == 0 {
		return true, nil
	}
	n.pending--
	return false, nil
}

func (n *fakeNetwork) Disconnect(context.Context) error { return nil }

func (n *fakeNetwork) ActiveLink(context.Context) (core.Link, error) {
	if n.joined == "" {
		return core.Link{}, errors.New("no active link")
	}
	return core.Link{SSID: n.joined, Strength: 70}, nil
}

type fakeWatchdog struct {
	feeds int
}

func (w *fakeWatchdog) Feed() error  { w.feeds++; return nil }
func (w *fakeWatchdog) Close() error { return nil }

type testEnv struct {
	sup      *Supervisor
	client   *fakeClient
	network  *fakeNetwork
	watchdog *fakeWatchdog
	clock    *clocktesting.FakeClock
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		client:   newFakeClient(),
		network:  &fakeNetwork{reachable: map[string]int{}},
		watchdog: &fakeWatchdog{},
		clock:    clocktesting.NewFakeClock(time.Unix(1700000000, 0)),
		metrics:  metrics.New(),
	}
	env.sup = NewSupervisor(SupervisorConfig{
		IMEI:           testIMEI,
		Network:        env.network,
		Credentials:    []Credential{{SSID: "lab", Password: "secret"}, {SSID: "office", Password: "hunter2"}},
		Wifi:           DefaultWifiPolicy(),
		Client:         env.client,
		Topics:         topic.NewTopicBuilder(topic.DefaultRoot),
		ConnectTimeout: 5 * time.Second,
		InboxSize:      2,
		Watchdog:       env.watchdog,
		Budget:         NewBudget(8 * time.Second),
		Clock:          env.clock,
		Metrics:        env.metrics,
	})
	return env
}
