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
	"encoding/json"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
)

// StatusEvent is the payload of an update status report.
type StatusEvent struct {
	IMEI   string      `json:"imei"`
	Status core.Status `json:"status"`
	Log    string      `json:"log"`
}

var _ core.Reporter = (*Reporter)(nil)

// Reporter publishes StatusEvents with QoS 0: no acknowledgement is awaited
// and failures are never retried.
type Reporter struct {
	imei    string
	topic   string
	client  mqtt.Client
	budget  Budget
	metrics *metrics.Metrics
}

func NewReporter(imei, topic string, client mqtt.Client, budget Budget, m *metrics.Metrics) *Reporter {
	return &Reporter{
		imei:    imei,
		topic:   topic,
		client:  client,
		budget:  budget,
		metrics: m,
	}
}

func (r *Reporter) Report(ctx context.Context, status core.Status, msg string) {
	log.Info("Reporting update status", "imei", r.imei, "status", status, "log", msg)

	payload, err := json.Marshal(StatusEvent{IMEI: r.imei, Status: status, Log: msg})
	if err != nil {
		r.metrics.StatusReports.WithLabelValues(string(status), "failed").Inc()
		log.Error(err, "Failed to encode status event", "status", status)
		return
	}

	ctx, cancel := r.budget.WithDeadline(ctx)
	defer cancel()

	if err := r.client.Publish(ctx, r.topic, 0, false, payload); err != nil {
		r.metrics.StatusReports.WithLabelValues(string(status), "failed").Inc()
		log.Error(err, "Failed to publish status event", "topic", r.topic, "status", status)
		return
	}
	r.metrics.StatusReports.WithLabelValues(string(status), "sent").Inc()
}
