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

package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
)

// ExampleClient shows the device-side flow: register a last will, connect
// once with a deadline, subscribe to the command topic and announce presence.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "0A13FF0001220B0C",
		Username:       "iot_device_1",
		Password:       "device_password_123",
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
		WillTopic:      "floor-inspector/device/0A13FF0001220B0C/connect/data",
		WillPayload:    []byte(`{"imei":"0A13FF0001220B0C","status":"OFFLINE"}`),
		WillQoS:        1,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Broker unreachable")
		_ = client.Disconnect(context.Background())
		return
	}

	inbox := make(chan []byte, 16)
	_ = client.Subscribe(ctx, "floor-inspector/device/0A13FF0001220B0C/firmware/update/command", 1,
		func(_ context.Context, _ string, payload []byte) {
			select {
			case inbox <- payload:
			default:
			}
		})

	_ = client.Publish(ctx, "floor-inspector/device/0A13FF0001220B0C/connect/data", 1, false,
		[]byte(`{"imei":"0A13FF0001220B0C","status":"CONNECTED"}`))

	select {
	case payload := <-inbox:
		fmt.Printf("command: %s\n", payload)
	default:
	}

	_ = client.Disconnect(context.Background())
}
