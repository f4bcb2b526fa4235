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

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
)

// Inbox decouples the MQTT reader goroutine from the supervised loop. The
// reader enqueues without blocking; the loop drains one message per
// iteration.
type Inbox struct {
	ch      chan []byte
	metrics *metrics.Metrics
}

func NewInbox(size int, m *metrics.Metrics) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{ch: make(chan []byte, size), metrics: m}
}

// Handler returns the subscription callback feeding the inbox.
func (i *Inbox) Handler() mqtt.MessageHandler {
	return func(_ context.Context, topic string, payload []byte) {
		select {
		case i.ch <- payload:
		default:
			i.metrics.MessagesDropped.Inc()
			log.Warn("Inbox full, dropping message", "topic", topic, "size", len(payload))
		}
	}
}

// TryReceive returns the oldest queued message without blocking.
func (i *Inbox) TryReceive() ([]byte, bool) {
	select {
	case payload := <-i.ch:
		return payload, true
	default:
		return nil, false
	}
}
