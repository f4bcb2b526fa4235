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

// Package updater runs the boot-time update check of a floor inspector.
package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/internal/updater/entrypoint"
	"github.com/autopeer-io/floor-inspector/internal/updater/hub"
	"github.com/autopeer-io/floor-inspector/internal/updater/ota"
	"github.com/autopeer-io/floor-inspector/internal/updater/store"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// Outcomes reached before the supervised loop starts.
const (
	OutcomeSkipped      hub.Outcome = "SKIPPED"
	OutcomeNoConnection hub.Outcome = "NO_CONNECTION"
)

// DialFunc builds the connection supervisor once the IMEI is known.
type DialFunc func(imei string, wd core.Watchdog) (*hub.Supervisor, error)

// Components are the collaborators of an Agent.
type Components struct {
	Fs         afero.Fs
	HAL        core.HAL
	Identities *store.IdentityStore
	Flags      *store.FlagStore
	Entrypoint *entrypoint.Swapper

	// OpenWatchdog is called only when an update check is going to run, so a
	// skipped boot never arms a hardware watchdog.
	OpenWatchdog func() (core.Watchdog, error)
	Dial         DialFunc

	Policy hub.LoopPolicy
	OTA    ota.Config

	Metrics *metrics.Metrics
	// MetricsPath is the node-exporter textfile written when Run returns.
	MetricsPath string
	Clock       clock.Clock
}

type Agent struct {
	c Components
}

func NewAgent(c Components) *Agent {
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	return &Agent{c: c}
}

// Run performs one update check. The returned error is non-nil only when the
// device cannot establish its identity or the agent is misconfigured; every
// other failure ends the check and hands control back to the boot sequence.
func (a *Agent) Run(ctx context.Context) (hub.Outcome, error) {
	start := a.c.Clock.Now()
	defer a.finish(start)

	identity, err := a.c.Identities.GetOrCreate(ctx)
	if a.c.HAL != nil {
		if cerr := a.c.HAL.Close(); cerr != nil {
			log.Warn("Failed to close hardware id reader", "error", cerr)
		}
	}
	if err != nil {
		return "", err
	}
	log.Info("Starting fi-updater", "imei", identity.IMEI,
		"version", identity.CurrentVersion, "model", identity.CurrentModel)

	if created, err := a.c.Flags.EnsureExists(); err != nil {
		log.Error(err, "Failed to create skip-update flag", "path", a.c.Flags.Path())
	} else if created {
		log.Info("Created skip-update flag", "path", a.c.Flags.Path())
	}

	if a.c.Flags.IsSkipSet() {
		log.Info("Skip-update flag is set, not checking for updates", "path", a.c.Flags.Path())
		return OutcomeSkipped, nil
	}

	wd, err := a.c.OpenWatchdog()
	if err != nil {
		return "", fmt.Errorf("opening watchdog: %w", err)
	}
	defer func() {
		if err := wd.Close(); err != nil {
			log.Warn("Failed to close watchdog", "error", err)
		}
	}()

	supervisor, err := a.c.Dial(identity.IMEI, wd)
	if err != nil {
		return "", err
	}

	session, err := supervisor.Connect(ctx)
	if err != nil {
		log.Error(err, "Update check aborted", "imei", identity.IMEI)
		notifyStatus(wd, "no connection")
		return OutcomeNoConnection, nil
	}
	defer session.Close(context.WithoutCancel(ctx))
	notifyStatus(wd, "waiting for update command")

	if err := session.RequestCheck(ctx, identity.CurrentVersion, identity.CurrentModel); err != nil {
		// The cloud may still push a command on its own.
		log.Warn("Failed to request update check", "error", err)
	}

	handler := ota.NewHandler(a.c.OTA, ota.HandlerDeps{
		Fs:         a.c.Fs,
		Identity:   identity,
		Versions:   a.c.Identities,
		Flags:      a.c.Flags,
		Entrypoint: a.c.Entrypoint,
		Reporter:   session.Reporter(),
		Completion: session.Completion(),
		Metrics:    a.c.Metrics,
	})

	outcome := session.RunSupervised(ctx, handler.Handle, a.c.Policy)
	notifyStatus(wd, "update check "+string(outcome))
	return outcome, nil
}

func (a *Agent) finish(start time.Time) {
	a.c.Metrics.RunDuration.Set(a.c.Clock.Since(start).Seconds())
	if a.c.MetricsPath == "" {
		return
	}
	if err := a.c.Metrics.WriteTextfile(a.c.MetricsPath); err != nil {
		log.Error(err, "Failed to write metrics textfile", "path", a.c.MetricsPath)
	}
}

// notifyStatus forwards a status line to watchdogs that can display one.
func notifyStatus(wd core.Watchdog, msg string) {
	if n, ok := wd.(interface{ Status(string) }); ok {
		n.Status(msg)
	}
}
