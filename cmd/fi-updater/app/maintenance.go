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
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/floor-inspector/cmd/fi-updater/app/options"
	"github.com/autopeer-io/floor-inspector/internal/updater"
)

func newInspectCommand(opts *options.UpdaterOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the persisted identity, skip-update flag and entrypoint state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateDevice(); err != nil {
				return err
			}
			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), cfg, afero.NewOsFs())
		},
	}
}

func newResetCommand(opts *options.UpdaterOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the skip-update flag so the next boot checks for updates again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateDevice(); err != nil {
				return err
			}
			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			return reset(cmd.OutOrStdout(), cfg, afero.NewOsFs())
		},
	}
}

// inspect never reads hardware: a missing identity is reported as such.
func inspect(w io.Writer, cfg *updater.Config, afs afero.Fs) error {
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("FIELD", "VALUE")

	identities := cfg.IdentityStore(afs, nil)
	table.AddRow("identity file", identities.Path())
	id, err := identities.Load()
	switch {
	case err == nil:
		table.AddRow("imei", id.IMEI)
		table.AddRow("version", id.CurrentVersion)
		table.AddRow("model", id.CurrentModel)
	case errors.Is(err, iofs.ErrNotExist):
		table.AddRow("imei", "<not created>")
	default:
		table.AddRow("imei", "<unreadable: "+err.Error()+">")
	}

	flags := cfg.FlagStore(afs)
	table.AddRow("flag file", flags.Path())
	flag, err := flags.Load()
	switch {
	case err == nil:
		table.AddRow("skip update", strconv.FormatBool(flag.SkipUpdate))
	case errors.Is(err, iofs.ErrNotExist):
		table.AddRow("skip update", "<not created>")
	default:
		table.AddRow("skip update", "<unreadable: "+err.Error()+">")
	}

	swapper := cfg.Swapper(afs)
	table.AddRow("entrypoint", swapper.ActivePath())
	state, err := swapper.State()
	if err != nil {
		return err
	}
	table.AddRow("entrypoint state", string(state))

	_, err = fmt.Fprintln(w, table)
	return err
}

func reset(w io.Writer, cfg *updater.Config, afs afero.Fs) error {
	flags := cfg.FlagStore(afs)
	if err := flags.SetSkip(false); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "skip-update flag cleared in %s\n", flags.Path())
	return err
}
