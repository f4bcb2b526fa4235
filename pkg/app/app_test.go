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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type probeOptions struct {
	Interval time.Duration `mapstructure:"interval"`
	Targets  []string      `mapstructure:"targets"`
}

type testOptions struct {
	Name  string        `mapstructure:"name"`
	Probe *probeOptions `mapstructure:"probe"`

	completed bool
	invalid   error
}

var _ NamedFlagSetOptions = (*testOptions)(nil)

func newTestOptions() *testOptions {
	return &testOptions{
		Name:  "default",
		Probe: &probeOptions{Interval: time.Second},
	}
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("probe")
	fs.StringVar(&o.Name, "name", o.Name, "Name.")
	fs.DurationVar(&o.Probe.Interval, "probe.interval", o.Probe.Interval, "Interval.")
	fs.StringArrayVar(&o.Probe.Targets, "probe.target", o.Probe.Targets, "Target.")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error { return o.invalid }

func execute(t *testing.T, a *App, args ...string) error {
	t.Helper()
	a.Command().SetArgs(args)
	return a.Command().Execute()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunUsesFlagDefaults(t *testing.T) {
	opts := newTestOptions()
	ran := false
	a := NewApp("probe-test", "test", WithOptions(opts), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	require.NoError(t, execute(t, a))
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, "default", opts.Name)
	assert.Equal(t, time.Second, opts.Probe.Interval)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	opts := newTestOptions()
	a := NewApp("probe-test", "test", WithOptions(opts), WithRunFunc(func() error { return nil }))

	path := writeConfig(t, "name: from-file\nprobe:\n  interval: 5s\n")
	require.NoError(t, execute(t, a, "--config", path))
	assert.Equal(t, "from-file", opts.Name)
	assert.Equal(t, 5*time.Second, opts.Probe.Interval)
}

func TestFlagOverridesConfigFile(t *testing.T) {
	opts := newTestOptions()
	a := NewApp("probe-test", "test", WithOptions(opts), WithRunFunc(func() error { return nil }))

	path := writeConfig(t, "name: from-file\n")
	require.NoError(t, execute(t, a, "--config", path, "--name", "from-flag", "--probe.target", "a", "--probe.target", "b"))
	assert.Equal(t, "from-flag", opts.Name)
	assert.Equal(t, []string{"a", "b"}, opts.Probe.Targets)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PROBE_TEST_PROBE_INTERVAL", "3s")

	opts := newTestOptions()
	a := NewApp("probe-test", "test", WithOptions(opts), WithRunFunc(func() error { return nil }))

	require.NoError(t, execute(t, a))
	assert.Equal(t, 3*time.Second, opts.Probe.Interval)
}

func TestMissingConfigFile(t *testing.T) {
	a := NewApp("probe-test", "test", WithOptions(newTestOptions()), WithRunFunc(func() error { return nil }))
	require.Error(t, execute(t, a, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestValidateStopsRun(t *testing.T) {
	opts := newTestOptions()
	opts.invalid = errors.New("bad")
	ran := false
	a := NewApp("probe-test", "test", WithOptions(opts), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	require.EqualError(t, execute(t, a), "bad")
	assert.False(t, ran)
}

func TestDefaultValidArgs(t *testing.T) {
	a := NewApp("probe-test", "test", WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	require.Error(t, execute(t, a, "extra"))
}

func TestSubCommandSeesLoadedOptions(t *testing.T) {
	opts := newTestOptions()
	var seen string
	sub := &cobra.Command{
		Use: "show",
		RunE: func(*cobra.Command, []string) error {
			seen = opts.Name
			return nil
		},
	}
	a := NewApp("probe-test", "test", WithOptions(opts), WithSubCommands(sub), WithRunFunc(func() error { return nil }))

	path := writeConfig(t, "name: from-file\n")
	require.NoError(t, execute(t, a, "show", "--config", path))
	assert.Equal(t, "from-file", seen)
	assert.True(t, opts.completed)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "FI_UPDATER", EnvPrefix("fi-updater"))
	assert.Equal(t, "PROBE_TEST", EnvPrefix("probe.test"))
}
