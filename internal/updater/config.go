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

package updater

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/internal/updater/entrypoint"
	"github.com/autopeer-io/floor-inspector/internal/updater/hal"
	"github.com/autopeer-io/floor-inspector/internal/updater/hub"
	"github.com/autopeer-io/floor-inspector/internal/updater/ota"
	"github.com/autopeer-io/floor-inspector/internal/updater/store"
	"github.com/autopeer-io/floor-inspector/internal/updater/watchdog"
	"github.com/autopeer-io/floor-inspector/internal/updater/wifi"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/floor-inspector/pkg/mqtt/topic"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

type Config struct {
	DeviceOptions   *options.DeviceOptions
	MqttOptions     *options.MqttOptions
	WifiOptions     *options.WifiOptions
	WatchdogOptions *options.WatchdogOptions
	UpdateOptions   *options.UpdateOptions
	MetricsOptions  *options.MetricsOptions
}

func (cfg *Config) NewAgent() (*Agent, error) {
	fs := afero.NewOsFs()
	dev := cfg.DeviceOptions

	if err := fs.MkdirAll(dev.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	systemHAL, err := hal.New(dev)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	clk := clock.RealClock{}

	return NewAgent(Components{
		Fs:         fs,
		HAL:        systemHAL,
		Identities: cfg.IdentityStore(fs, systemHAL),
		Flags:      cfg.FlagStore(fs),
		Entrypoint: cfg.Swapper(fs),
		OpenWatchdog: func() (core.Watchdog, error) {
			return watchdog.New(cfg.WatchdogOptions)
		},
		Dial: func(imei string, wd core.Watchdog) (*hub.Supervisor, error) {
			network, err := wifi.New(cfg.WifiOptions)
			if err != nil {
				return nil, err
			}
			return cfg.newSupervisor(imei, network, wd, m, clk)
		},
		Policy:      cfg.LoopPolicy(),
		OTA:         cfg.OTAConfig(),
		Metrics:     m,
		MetricsPath: cfg.MetricsOptions.TextfilePath,
		Clock:       clk,
	}), nil
}

// IdentityStore, FlagStore and Swapper are shared with the maintenance
// subcommands, which inspect the same files without touching the network.

func (cfg *Config) IdentityStore(fs afero.Fs, h core.HAL) *store.IdentityStore {
	dev := cfg.DeviceOptions
	return store.NewIdentityStore(fs, filepath.Join(dev.StateDir, dev.IdentityFile), h, dev.Model)
}

func (cfg *Config) FlagStore(fs afero.Fs) *store.FlagStore {
	dev := cfg.DeviceOptions
	return store.NewFlagStore(fs, filepath.Join(dev.StateDir, dev.FlagFile))
}

func (cfg *Config) Swapper(fs afero.Fs) *entrypoint.Swapper {
	dev := cfg.DeviceOptions
	return entrypoint.NewSwapper(fs, dev.StateDir, dev.Entrypoint, dev.EntrypointBackup)
}

// LoopPolicy assembles the supervised loop bounds from the update and
// watchdog options.
func (cfg *Config) LoopPolicy() hub.LoopPolicy {
	u := cfg.UpdateOptions
	return hub.LoopPolicy{
		MaxWait:              u.MaxWait,
		PollInterval:         u.PollInterval,
		WatchdogTimeout:      cfg.WatchdogOptions.Timeout,
		MaxConsecutiveErrors: u.MaxConsecutiveErrors,
		BackoffStep:          u.BackoffStep,
		BackoffCap:           u.BackoffCap,
		MemoryReportInterval: u.MemoryReportInterval,
	}
}

func (cfg *Config) OTAConfig() ota.Config {
	return ota.Config{
		ScriptDir:                  cfg.DeviceOptions.StateDir,
		ScriptExtension:            cfg.DeviceOptions.ScriptExtension,
		RestoreEntrypointOnFailure: cfg.UpdateOptions.RestoreEntrypointOnFailure,
	}
}

func (cfg *Config) wifiPolicy() hub.WifiPolicy {
	w := cfg.WifiOptions
	return hub.WifiPolicy{
		ConnectTimeout: w.ConnectTimeout,
		PollInterval:   w.PollInterval,
		Passes:         w.Passes,
		PassDelay:      w.PassDelay,
	}
}

func (cfg *Config) newSupervisor(imei string, network core.Network, wd core.Watchdog,
	m *metrics.Metrics, clk clock.Clock) (*hub.Supervisor, error) {
	creds, err := cfg.WifiOptions.Credentials()
	if err != nil {
		return nil, err
	}
	credentials := make([]hub.Credential, 0, len(creds))
	for _, c := range creds {
		credentials = append(credentials, hub.Credential{SSID: c.SSID, Password: c.Password})
	}

	mqttClient, topicBuilder, err := cfg.initMqttClientAndTopicBuilder(imei, m)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	return hub.NewSupervisor(hub.SupervisorConfig{
		IMEI:           imei,
		Network:        network,
		Credentials:    credentials,
		Wifi:           cfg.wifiPolicy(),
		Client:         mqttClient,
		Topics:         topicBuilder,
		ConnectTimeout: cfg.MqttOptions.ConnectTimeout,
		InboxSize:      cfg.MqttOptions.InboxSize,
		Watchdog:       wd,
		Budget:         hub.NewBudget(cfg.WatchdogOptions.Timeout),
		Clock:          clk,
		Metrics:        m,
	}), nil
}

func (cfg *Config) initMqttClientAndTopicBuilder(imei string, m *metrics.Metrics) (mqtt.Client, *mqtttopic.TopicBuilder, error) {
	topicBuilder := mqtttopic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)

	mqttConfig := cfg.mqttClientConfig(imei, topicBuilder)
	mqttConfig.OnConnectionChange = observeBroker(mqttConfig.BrokerURL, m)

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, nil, err
	}

	return mqttClient, topicBuilder, nil
}

func (cfg *Config) mqttClientConfig(imei string, topics *mqtttopic.TopicBuilder) *mqtt.ClientConfig {
	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = imei
	}

	// Not retained: the next CONNECTED presence supersedes it anyway.
	mqttConfig.WillTopic = topics.ConnectData(imei)
	mqttConfig.WillPayload = hub.OfflinePayload(imei)
	mqttConfig.WillQoS = 1
	mqttConfig.WillRetain = false

	return mqttConfig
}

func observeBroker(broker string, m *metrics.Metrics) func(up bool) {
	return func(up bool) {
		if up {
			log.Info("Connected to broker", "broker", broker)
			return
		}
		m.BrokerLosses.Inc()
		log.Warn("Lost broker connection", "broker", broker)
	}
}
