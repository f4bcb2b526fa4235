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
	"fmt"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/floor-inspector/internal/updater"
	"github.com/autopeer-io/floor-inspector/pkg/app"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

type UpdaterOptions struct {
	DeviceOptions   *options.DeviceOptions   `json:"device" mapstructure:"device"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	WifiOptions     *options.WifiOptions     `json:"wifi" mapstructure:"wifi"`
	WatchdogOptions *options.WatchdogOptions `json:"watchdog" mapstructure:"watchdog"`
	UpdateOptions   *options.UpdateOptions   `json:"update" mapstructure:"update"`
	MetricsOptions  *options.MetricsOptions  `json:"metrics" mapstructure:"metrics"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*UpdaterOptions)(nil)

func NewUpdaterOptions() *UpdaterOptions {
	o := &UpdaterOptions{
		DeviceOptions:   options.NewDeviceOptions(),
		MqttOptions:     options.NewMqttOptions(),
		WifiOptions:     options.NewWifiOptions(),
		WatchdogOptions: options.NewWatchdogOptions(),
		UpdateOptions:   options.NewUpdateOptions(),
		MetricsOptions:  options.NewMetricsOptions(),
		Log:             log.NewOptions(),
	}

	return o
}

func (o *UpdaterOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.DeviceOptions.AddFlags(fss.FlagSet("device"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.WifiOptions.AddFlags(fss.FlagSet("wifi"))
	o.WatchdogOptions.AddFlags(fss.FlagSet("watchdog"))
	o.UpdateOptions.AddFlags(fss.FlagSet("update"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *UpdaterOptions) Complete() error {
	if o.DeviceOptions.StateDir != "" {
		o.DeviceOptions.StateDir = filepath.Clean(o.DeviceOptions.StateDir)
	}
	return nil
}

func (o *UpdaterOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.DeviceOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.WifiOptions.Validate()...)
	errs = append(errs, o.WatchdogOptions.Validate()...)
	errs = append(errs, o.UpdateOptions.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	// Every blocking step must fit inside the watchdog window.
	if len(errs) == 0 {
		cfg, _ := o.Config()
		if err := cfg.LoopPolicy().Validate(); err != nil {
			errs = append(errs, err)
		}
		if o.WifiOptions.PollInterval >= o.WatchdogOptions.Timeout {
			errs = append(errs, fmt.Errorf("--wifi.poll-interval must be shorter than --watchdog.timeout"))
		}
	}

	return utilerrors.NewAggregate(errs)
}

// ValidateDevice checks only what the offline maintenance commands need.
func (o *UpdaterOptions) ValidateDevice() error {
	return utilerrors.NewAggregate(o.DeviceOptions.Validate())
}

func (o *UpdaterOptions) Config() (*updater.Config, error) {
	return &updater.Config{
		DeviceOptions:   o.DeviceOptions,
		MqttOptions:     o.MqttOptions,
		WifiOptions:     o.WifiOptions,
		WatchdogOptions: o.WatchdogOptions,
		UpdateOptions:   o.UpdateOptions,
		MetricsOptions:  o.MetricsOptions,
	}, nil
}
