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

	"github.com/spf13/pflag"
)

var _ IOptions = (*DeviceOptions)(nil)

const (
	HALDriverI2C  = "i2c"
	HALDriverMock = "mock"
)

// DeviceOptions describes the on-device layout: where records live, which
// file is the entrypoint and how the hardware identity is read.
type DeviceOptions struct {
	StateDir string `json:"state-dir" mapstructure:"state-dir"`

	IdentityFile string `json:"identity-file" mapstructure:"identity-file"`
	FlagFile     string `json:"flag-file" mapstructure:"flag-file"`

	Entrypoint       string `json:"entrypoint" mapstructure:"entrypoint"`
	EntrypointBackup string `json:"entrypoint-backup" mapstructure:"entrypoint-backup"`

	// ScriptExtension is appended to the fileName of received scripts.
	ScriptExtension string `json:"script-extension" mapstructure:"script-extension"`

	Model string `json:"model" mapstructure:"model"`

	HALDriver  string `json:"hal-driver" mapstructure:"hal-driver"`
	I2CBus     string `json:"i2c-bus" mapstructure:"i2c-bus"`
	I2CAddress uint16 `json:"i2c-address" mapstructure:"i2c-address"`
}

func NewDeviceOptions() *DeviceOptions {
	return &DeviceOptions{
		StateDir:         "/var/lib/floor-inspector",
		IdentityFile:     "device_info.txt",
		FlagFile:         "flag_skip_update.txt",
		Entrypoint:       "main.py",
		EntrypointBackup: "main.bak.py",
		ScriptExtension:  ".py",
		Model:            "RSX-511",
		HALDriver:        HALDriverI2C,
		I2CBus:           "/dev/i2c-0",
		I2CAddress:       0x48,
	}
}

func (o *DeviceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.StateDir == "" {
		errs = append(errs, fmt.Errorf("--device.state-dir is required"))
	}
	for flag, name := range map[string]string{
		"--device.identity-file":     o.IdentityFile,
		"--device.flag-file":         o.FlagFile,
		"--device.entrypoint":        o.Entrypoint,
		"--device.entrypoint-backup": o.EntrypointBackup,
	} {
		if name == "" || filepath.Base(name) != name {
			errs = append(errs, fmt.Errorf("%s must be a bare file name, got %q", flag, name))
		}
	}
	if o.Entrypoint == o.EntrypointBackup {
		errs = append(errs, fmt.Errorf("--device.entrypoint and --device.entrypoint-backup must differ"))
	}
	switch o.HALDriver {
	case HALDriverI2C, HALDriverMock:
	default:
		errs = append(errs, fmt.Errorf("unknown --device.hal-driver %q", o.HALDriver))
	}
	if o.I2CAddress > 0x7f {
		errs = append(errs, fmt.Errorf("--device.i2c-address 0x%x is not a 7-bit address", o.I2CAddress))
	}

	return errs
}

func (o *DeviceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.StateDir, "device.state-dir", o.StateDir, "Directory holding the persisted records, the entrypoint and received scripts.")
	fs.StringVar(&o.IdentityFile, "device.identity-file", o.IdentityFile, "File name of the device identity record.")
	fs.StringVar(&o.FlagFile, "device.flag-file", o.FlagFile, "File name of the skip-update flag record.")
	fs.StringVar(&o.Entrypoint, "device.entrypoint", o.Entrypoint, "File name of the entrypoint script run by the boot sequence.")
	fs.StringVar(&o.EntrypointBackup, "device.entrypoint-backup", o.EntrypointBackup, "File name the entrypoint is moved to while an update is staged.")
	fs.StringVar(&o.ScriptExtension, "device.script-extension", o.ScriptExtension, "Extension appended to received script names.")
	fs.StringVar(&o.Model, "device.model", o.Model, "Model string recorded in a freshly created identity.")
	fs.StringVar(&o.HALDriver, "device.hal-driver", o.HALDriver, "Hardware id source: 'i2c' or 'mock'.")
	fs.StringVar(&o.I2CBus, "device.i2c-bus", o.I2CBus, "I2C bus device holding the identity registers.")
	fs.Uint16Var(&o.I2CAddress, "device.i2c-address", o.I2CAddress, "7-bit I2C address of the identity chip.")
}
