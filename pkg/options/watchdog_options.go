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
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WatchdogOptions)(nil)

const (
	WatchdogDriverSystemd = "systemd"
	WatchdogDriverDevice  = "device"
	WatchdogDriverNone    = "none"
)

type WatchdogOptions struct {
	Driver  string        `json:"driver" mapstructure:"driver"`
	Device  string        `json:"device" mapstructure:"device"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewWatchdogOptions() *WatchdogOptions {
	return &WatchdogOptions{
		Driver:  WatchdogDriverSystemd,
		Device:  "/dev/watchdog",
		Timeout: 8 * time.Second,
	}
}

func (o *WatchdogOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	switch o.Driver {
	case WatchdogDriverSystemd, WatchdogDriverNone:
	case WatchdogDriverDevice:
		if o.Device == "" {
			errs = append(errs, fmt.Errorf("--watchdog.device is required for driver %q", o.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown --watchdog.driver %q", o.Driver))
	}
	if o.Timeout < time.Second {
		errs = append(errs, fmt.Errorf("--watchdog.timeout must be at least 1s"))
	}

	return errs
}

func (o *WatchdogOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, "watchdog.driver", o.Driver, "Watchdog backend: 'systemd', 'device' or 'none'.")
	fs.StringVar(&o.Device, "watchdog.device", o.Device, "Watchdog character device used by the 'device' driver.")
	fs.DurationVar(&o.Timeout, "watchdog.timeout", o.Timeout, "Hardware watchdog timeout. Every blocking step is budgeted against it.")
}
