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

package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() *UpdaterOptions {
	o := NewUpdaterOptions()
	o.WifiOptions.Networks = []string{"lab=secret"}
	return o
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, validOptions().Validate())
}

func TestValidateRequiresNetworks(t *testing.T) {
	o := NewUpdaterOptions()
	assert.ErrorContains(t, o.Validate(), "--wifi.network")
}

func TestValidateBackoffAgainstWatchdog(t *testing.T) {
	o := validOptions()
	o.WatchdogOptions.Timeout = 4 * time.Second
	o.UpdateOptions.BackoffCap = 5 * time.Second

	require.Error(t, o.Validate())
}

func TestValidateWifiPollAgainstWatchdog(t *testing.T) {
	o := validOptions()
	o.WifiOptions.PollInterval = 10 * time.Second

	assert.ErrorContains(t, o.Validate(), "--wifi.poll-interval")
}

func TestValidateAggregates(t *testing.T) {
	o := validOptions()
	o.MqttOptions.Broker = ""
	o.Log.Format = "xml"

	err := o.Validate()
	assert.ErrorContains(t, err, "--mqtt.broker")
	assert.ErrorContains(t, err, "--log.format")
}

func TestCompleteCleansStateDir(t *testing.T) {
	o := validOptions()
	o.DeviceOptions.StateDir = "/var/lib/floor-inspector/"
	require.NoError(t, o.Complete())
	assert.Equal(t, "/var/lib/floor-inspector", o.DeviceOptions.StateDir)
}

func TestConfigCarriesOptions(t *testing.T) {
	o := validOptions()
	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.MqttOptions, cfg.MqttOptions)
	assert.Equal(t, o.WatchdogOptions.Timeout, cfg.LoopPolicy().WatchdogTimeout)
}
