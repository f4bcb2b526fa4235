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
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WifiOptions)(nil)

const (
	WifiBackendNetworkManager = "networkmanager"
	WifiBackendNone           = "none"
)

// WifiCredential is one known network. Order in WifiOptions.Networks is the
// connection priority.
type WifiCredential struct {
	SSID     string
	Password string
}

// WifiOptions configures wireless association.
type WifiOptions struct {
	// Backend selects the driver: "networkmanager" talks to NetworkManager
	// over the system D-Bus, "none" assumes the link is managed elsewhere.
	Backend   string `json:"backend" mapstructure:"backend"`
	Interface string `json:"interface" mapstructure:"interface"`

	// Networks lists "ssid=password" entries in priority order.
	Networks []string `json:"networks" mapstructure:"networks"`

	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	PollInterval   time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
	Passes         int           `json:"passes" mapstructure:"passes"`
	PassDelay      time.Duration `json:"pass-delay" mapstructure:"pass-delay"`
}

// NewWifiOptions creates a new WifiOptions with default values.
func NewWifiOptions() *WifiOptions {
	return &WifiOptions{
		Backend:        WifiBackendNetworkManager,
		Interface:      "wlan0",
		ConnectTimeout: 30 * time.Second,
		PollInterval:   100 * time.Millisecond,
		Passes:         3,
		PassDelay:      500 * time.Millisecond,
	}
}

// Credentials parses Networks, keeping their order.
func (o *WifiOptions) Credentials() ([]WifiCredential, error) {
	creds := make([]WifiCredential, 0, len(o.Networks))
	for _, entry := range o.Networks {
		ssid, password, ok := strings.Cut(entry, "=")
		if !ok || ssid == "" {
			return nil, fmt.Errorf("invalid wifi network %q, expected ssid=password", entry)
		}
		creds = append(creds, WifiCredential{SSID: ssid, Password: password})
	}
	return creds, nil
}

// Validate checks the wifi options.
func (o *WifiOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	switch o.Backend {
	case WifiBackendNetworkManager:
		if len(o.Networks) == 0 {
			errs = append(errs, fmt.Errorf("--wifi.network must be given at least once for backend %q", o.Backend))
		}
	case WifiBackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown --wifi.backend %q", o.Backend))
	}

	if _, err := o.Credentials(); err != nil {
		errs = append(errs, err)
	}
	if o.Passes < 1 {
		errs = append(errs, fmt.Errorf("--wifi.passes must be at least 1"))
	}
	if o.ConnectTimeout <= 0 || o.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("--wifi.connect-timeout and --wifi.poll-interval must be positive"))
	}

	return errs
}

// AddFlags adds flags for WifiOptions to the specified FlagSet.
func (o *WifiOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "wifi.backend", o.Backend, "Wireless driver: 'networkmanager' or 'none'.")
	fs.StringVar(&o.Interface, "wifi.interface", o.Interface, "Wireless interface name.")
	fs.StringArrayVar(&o.Networks, "wifi.network", o.Networks, "Known network as ssid=password. Repeat in priority order.")
	fs.DurationVar(&o.ConnectTimeout, "wifi.connect-timeout", o.ConnectTimeout, "How long to wait for each candidate network.")
	fs.DurationVar(&o.PollInterval, "wifi.poll-interval", o.PollInterval, "Association check interval; the watchdog is fed at this rate.")
	fs.IntVar(&o.Passes, "wifi.passes", o.Passes, "Number of full passes over the candidate list.")
	fs.DurationVar(&o.PassDelay, "wifi.pass-delay", o.PassDelay, "Delay between passes.")
}
