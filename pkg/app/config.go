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

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFlagName = "config"

func (a *App) addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&a.configFile, configFlagName, "c", a.configFile,
		"Read configuration from the specified `FILE` (YAML, JSON or TOML).")
}

// EnvPrefix is the prefix of the environment variables read for a command
// name: "fi-updater" reads FI_UPDATER_MQTT_BROKER for --mqtt.broker.
func EnvPrefix(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// bindConfig layers explicitly set flags over the environment over the
// config file over flag defaults, and decodes the result into the options.
// Dotted flag names ("mqtt.broker") map onto nested mapstructure keys.
func (a *App) bindConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	flags := pflag.NewFlagSet(a.name, pflag.ContinueOnError)
	flags.AddFlagSet(cmd.Flags())
	flags.AddFlagSet(cmd.InheritedFlags())
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", a.configFile, err)
		}
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}
	return nil
}
