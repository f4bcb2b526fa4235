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

// Package app builds cobra commands whose options come from flags, the
// environment and an optional config file, in that order of precedence.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"
)

// RunFunc is the main body of an application.
type RunFunc func() error

// NamedFlagSetOptions is implemented by the options struct of a command.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by concern.
	Flags() cliflag.NamedFlagSets
	// Complete fills in derived values after flags and config are applied.
	Complete() error
	// Validate reports every invalid value at once.
	Validate() error
}

type App struct {
	name        string
	shortDesc   string
	description string

	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	noConfig    bool
	subCommands []*cobra.Command

	configFile string
	cmd        *cobra.Command
}

type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithNoConfig drops the --config flag.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// WithSubCommands attaches maintenance commands. They share the parent's
// options, which are loaded and completed before they run.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.subCommands = append(a.subCommands, cmds...)
	}
}

func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command against os.Args.
func (a *App) Run() error {
	return a.cmd.Execute()
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	cmd.AddCommand(a.subCommands...)

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}
	cmd.PersistentPreRunE = a.loadOptions

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	if !a.noConfig {
		a.addConfigFlag(namedFlagSets.FlagSet("global"))
	}
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())

	fs := cmd.PersistentFlags()
	for _, name := range namedFlagSets.Order {
		fs.AddFlagSet(namedFlagSets.FlagSets[name])
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	a.cmd = cmd
}

func (a *App) loadOptions(cmd *cobra.Command, _ []string) error {
	if a.options == nil {
		return nil
	}
	if err := a.bindConfig(cmd); err != nil {
		return err
	}
	return a.options.Complete()
}

func (a *App) runCommand(*cobra.Command, []string) error {
	if a.options != nil {
		if err := a.options.Validate(); err != nil {
			return err
		}
	}
	return a.runFunc()
}
