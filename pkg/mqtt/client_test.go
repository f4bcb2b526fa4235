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
	"errors"
	"testing"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"floor-inspector/device/ABC/firmware/update/command", "floor-inspector/device/ABC/firmware/update/command", true},
		{"floor-inspector/device/+/firmware/update/command", "floor-inspector/device/ABC/firmware/update/command", true},
		{"floor-inspector/device/#", "floor-inspector/device/ABC/connect/data", true},
		{"floor-inspector/device/+/connect/data", "floor-inspector/device/ABC/firmware/update/command", false},
		{"floor-inspector/device/ABC", "floor-inspector/device/ABC/connect/data", false},
		{"floor-inspector/+/ABC/connect/data/extra", "floor-inspector/device/ABC/connect/data", false},
		{"floor-inspector/device/#", "floor-inspector/device", true},
		{"floor-inspector/device/+", "floor-inspector/device", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"~"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic))
		})
	}
}

func TestRouteDispatchesToMatchingHandlers(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "dev"})
	require.NoError(t, err)
	pc := c.(*pahoClient)

	var got []string
	record := func(name string) MessageHandler {
		return func(_ context.Context, topic string, payload []byte) {
			got = append(got, name+":"+topic+":"+string(payload))
		}
	}
	pc.subs["floor-inspector/device/ABC/firmware/update/command"] = subscription{qos: 1, handler: record("exact")}
	pc.subs["floor-inspector/device/+/connect/data"] = subscription{qos: 1, handler: record("presence")}

	ack, err := pc.route(paho.PublishReceived{Packet: &paho.Publish{
		Topic:   "floor-inspector/device/ABC/firmware/update/command",
		Payload: []byte("{}"),
	}})
	require.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, []string{"exact:floor-inspector/device/ABC/firmware/update/command:{}"}, got)

	got = nil
	ack, err = pc.route(paho.PublishReceived{Packet: &paho.Publish{Topic: "elsewhere"}})
	require.NoError(t, err)
	assert.True(t, ack)
	assert.Empty(t, got)
}

func TestConnectionChangeReportsTransitionsOnly(t *testing.T) {
	var changes []bool
	c, err := NewClient(&ClientConfig{
		BrokerURL:          "tcp://localhost:1883",
		ClientID:           "dev",
		OnConnectionChange: func(up bool) { changes = append(changes, up) },
	})
	require.NoError(t, err)
	pc := c.(*pahoClient)

	pc.setConnected(true)
	pc.setConnected(true)
	pc.setConnected(false)
	pc.onConnectError(errors.New("refused"))

	assert.Equal(t, []bool{true, false}, changes)
	assert.False(t, c.IsConnected())
}

func TestAwaitConnectionMarksLinkUpBeforeCallback(t *testing.T) {
	var changes []bool
	c, err := NewClient(&ClientConfig{
		BrokerURL:          "tcp://localhost:1883",
		ClientID:           "dev",
		OnConnectionChange: func(up bool) { changes = append(changes, up) },
	})
	require.NoError(t, err)
	pc := c.(*pahoClient)

	require.ErrorIs(t, pc.connectionAwaited(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.False(t, c.IsConnected())

	require.NoError(t, pc.connectionAwaited(nil))
	assert.True(t, c.IsConnected())

	// OnConnectionUp arriving afterwards is not a second transition.
	pc.setConnected(true)
	assert.Equal(t, []bool{true}, changes)
}

func TestAwaitConnectionBeforeStart(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "dev"})
	require.NoError(t, err)
	assert.ErrorIs(t, c.AwaitConnection(context.Background()), ErrNotStarted)
}

func TestConnectionConfigDebugLoggers(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "dev"})
	require.NoError(t, err)
	pc := c.(*pahoClient)

	cc := pc.connectionConfig()
	assert.Nil(t, cc.Debug)
	assert.NotNil(t, cc.Errors)
	assert.Equal(t, "dev", cc.ClientConfig.ClientID)

	pc.cfg.Debug = true
	assert.NotNil(t, pc.connectionConfig().PahoDebug)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.Error(t, err, "client id is required")

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "0A13FF0001220B0C"})
	require.NoError(t, err)
	assert.False(t, c.IsConnected())

	pc := c.(*pahoClient)
	assert.Equal(t, uint16(60), pc.cfg.KeepAlive)
	assert.Nil(t, pc.willMessage())

	assert.ErrorIs(t, c.Publish(context.Background(), "t", 1, false, nil), ErrNotStarted)
	assert.NoError(t, c.Disconnect(context.Background()))
}

func TestWillMessage(t *testing.T) {
	c, err := NewClient(&ClientConfig{
		BrokerURL:   "tcp://localhost:1883",
		ClientID:    "dev",
		WillTopic:   "floor-inspector/device/dev/connect/data",
		WillPayload: []byte(`{"imei":"dev","status":"OFFLINE"}`),
		WillQoS:     1,
	})
	require.NoError(t, err)

	will := c.(*pahoClient).willMessage()
	require.NotNil(t, will)
	assert.Equal(t, "floor-inspector/device/dev/connect/data", will.Topic)
	assert.Equal(t, byte(1), will.QoS)
}
