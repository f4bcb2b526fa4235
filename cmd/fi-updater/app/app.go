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

	"go.uber.org/automaxprocs/maxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/floor-inspector/cmd/fi-updater/app/options"
	"github.com/autopeer-io/floor-inspector/pkg/app"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

const (
	commandName = "fi-updater"
	commandDesc = `The floor inspector boot updater runs once per boot, before the
measurement entrypoint. It establishes the device identity, joins a known
WiFi network, asks the cloud for a newer entrypoint script over MQTT and
installs it, while feeding the hardware watchdog. Unless the identity cannot
be read, it always exits 0 so the boot sequence continues.`
)

func NewApp() *app.App {
	opts := options.NewUpdaterOptions()
	application := app.NewApp(
		commandName,
		"Check for and install an entrypoint update",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithSubCommands(
			newInspectCommand(opts),
			newResetCommand(opts),
		),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.UpdaterOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer func() { _ = log.Sync() }()

		undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		}))
		if err != nil {
			log.Warn("Failed to set GOMAXPROCS", "error", err)
		}
		defer undo()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		outcome, err := agent.Run(ctx)
		if err != nil {
			log.Error(err, "Update check failed")
			return err
		}
		log.Info("Update check finished", "outcome", outcome)
		return nil
	}
}
