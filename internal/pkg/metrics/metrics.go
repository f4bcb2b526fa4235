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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the counters of one updater run. The updater is a
// short-lived boot step, so nothing is served: the registry is dumped to a
// node-exporter textfile on exit.
type Metrics struct {
	Registry *prometheus.Registry

	// WifiAttempts counts association attempts per result (connected/timeout/error).
	WifiAttempts *prometheus.CounterVec

	// BrokerConnected is 1 while the broker session is up.
	BrokerConnected prometheus.Gauge
	// BrokerLosses counts drops of an established broker connection.
	BrokerLosses prometheus.Counter

	LoopIterations prometheus.Counter
	PollErrors     prometheus.Counter

	// LoopOutcome is set to 1 for the outcome of the supervised loop.
	LoopOutcome *prometheus.GaugeVec

	WatchdogFeeds    prometheus.Counter
	WatchdogOverruns prometheus.Counter

	// MessagesDropped counts publishes discarded because the inbox was full.
	MessagesDropped prometheus.Counter

	// StatusReports counts status publishes by status and result (sent/failed).
	StatusReports *prometheus.CounterVec

	// UpdateCommands counts handled commands by terminal status.
	UpdateCommands *prometheus.CounterVec
	// ResumeFailures counts installs whose entrypoint could not be renamed back.
	ResumeFailures prometheus.Counter

	RunDuration prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		WifiAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fi_updater_wifi_attempts_total",
				Help: "WiFi association attempts by result.",
			},
			[]string{"result"},
		),
		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fi_updater_broker_connected",
			Help: "Broker session state (1=connected, 0=disconnected).",
		}),
		BrokerLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_broker_connection_losses_total",
			Help: "Established broker connections that dropped.",
		}),
		LoopIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_loop_iterations_total",
			Help: "Iterations of the supervised update loop.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_poll_errors_total",
			Help: "Failed message checks in the supervised update loop.",
		}),
		LoopOutcome: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fi_updater_loop_outcome",
				Help: "Outcome of the supervised update loop (1 for the observed outcome).",
			},
			[]string{"outcome"},
		),
		WatchdogFeeds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_watchdog_feeds_total",
			Help: "Watchdog feeds issued.",
		}),
		WatchdogOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_watchdog_overruns_total",
			Help: "Feed-to-feed gaps that exceeded the watchdog timeout.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_messages_dropped_total",
			Help: "Received messages dropped because the inbox was full.",
		}),
		StatusReports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fi_updater_status_reports_total",
				Help: "Update status reports by status and publish result.",
			},
			[]string{"status", "result"},
		),
		UpdateCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fi_updater_update_commands_total",
				Help: "Handled update commands by terminal status.",
			},
			[]string{"status"},
		),
		ResumeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fi_updater_entrypoint_resume_failures_total",
			Help: "Installed updates whose paused entrypoint could not be restored.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fi_updater_run_duration_seconds",
			Help: "Wall time of the last updater run.",
		}),
	}

	m.Registry.MustRegister(
		m.WifiAttempts,
		m.BrokerConnected,
		m.BrokerLosses,
		m.LoopIterations,
		m.PollErrors,
		m.LoopOutcome,
		m.WatchdogFeeds,
		m.WatchdogOverruns,
		m.MessagesDropped,
		m.StatusReports,
		m.UpdateCommands,
		m.ResumeFailures,
		m.RunDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// WriteTextfile dumps every registered metric to path in the text exposition
// format. The write goes through a temp file and a rename.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
