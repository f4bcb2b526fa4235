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

package ota

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/looplab/fsm"
	"github.com/spf13/afero"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/floor-inspector/internal/pkg/util/fsm"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/internal/updater/store"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// Command states. Every handled message walks AWAITING -> PROCESSING -> DONE,
// or AWAITING -> DONE when it cannot be decoded.
const (
	StateAwaiting   = "awaiting"
	StateProcessing = "processing"
	StateDone       = "done"
)

const (
	EventProcess = "event_process"
	EventReject  = "event_reject"
	EventFinish  = "event_finish"
)

// Status log lines published with each outcome.
const (
	LogNoUpdate       = "No update required"
	LogScriptReceived = "Script received"
	LogScriptSaved    = "Saved script"
	LogSaveFailed     = "Script save failed"
)

type VersionStore interface {
	UpdateVersion(id *store.DeviceIdentity, version string) error
}

type FlagSetter interface {
	SetSkip(skip bool) error
}

type Entrypoint interface {
	Pause() error
	Resume() error
}

// Completer ends the supervised loop.
type Completer interface {
	Signal()
}

type Config struct {
	// ScriptDir receives the scripts; it is also the entrypoint directory.
	ScriptDir       string
	ScriptExtension string

	// RestoreEntrypointOnFailure resumes the entrypoint when the script
	// cannot be written. Off by default.
	RestoreEntrypointOnFailure bool
}

// Handler applies update commands. It runs synchronously inside the
// supervised loop and signals completion after every message, whatever
// happened.
type Handler struct {
	cfg Config
	fs  afero.Fs

	identity   *store.DeviceIdentity
	versions   VersionStore
	flags      FlagSetter
	entrypoint Entrypoint
	reporter   core.Reporter
	completion Completer
	metrics    *metrics.Metrics
}

type HandlerDeps struct {
	Fs         afero.Fs
	Identity   *store.DeviceIdentity
	Versions   VersionStore
	Flags      FlagSetter
	Entrypoint Entrypoint
	Reporter   core.Reporter
	Completion Completer
	Metrics    *metrics.Metrics
}

func NewHandler(cfg Config, deps HandlerDeps) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Handler{
		cfg:        cfg,
		fs:         deps.Fs,
		identity:   deps.Identity,
		versions:   deps.Versions,
		flags:      deps.Flags,
		entrypoint: deps.Entrypoint,
		reporter:   deps.Reporter,
		completion: deps.Completion,
		metrics:    deps.Metrics,
	}
}

// Handle processes one command payload.
func (h *Handler) Handle(ctx context.Context, payload []byte) {
	log.Info("Received update command", "size", len(payload))

	machine := newCommandFSM()
	status := h.handle(ctx, machine, payload)

	h.metrics.UpdateCommands.WithLabelValues(string(status)).Inc()
	h.completion.Signal()
}

func (h *Handler) handle(ctx context.Context, machine *fsm.FSM, payload []byte) (status core.Status) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		log.Error(err, "Rejecting update command")
		h.reporter.Report(ctx, core.StatusFailed, err.Error())
		fire(ctx, machine, EventReject)
		return core.StatusFailed
	}

	fire(ctx, machine, EventProcess)
	defer fire(ctx, machine, EventFinish)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			log.Error(err, "Update command panicked")
			h.reporter.Report(ctx, core.StatusFailed, "Exception: "+err.Error())
			status = core.StatusFailed
		}
	}()

	status, err = h.process(ctx, cmd)
	if err != nil {
		log.Error(err, "Failed to handle update command")
		h.reporter.Report(ctx, core.StatusFailed, "Exception: "+err.Error())
		return core.StatusFailed
	}
	return status
}

func (h *Handler) process(ctx context.Context, cmd *UpdateCommand) (core.Status, error) {
	if !cmd.Available() {
		log.Info("No update available")
		if err := h.flags.SetSkip(true); err != nil {
			return "", err
		}
		h.reporter.Report(ctx, core.StatusCompleted, LogNoUpdate)
		return core.StatusCompleted, nil
	}

	name := cmd.FileName + h.cfg.ScriptExtension
	log.Info("Received script", "file", name, "size", len(*cmd.Script), "version", cmd.Version)
	h.reporter.Report(ctx, core.StatusInProgress, LogScriptReceived)

	if err := h.entrypoint.Pause(); err != nil {
		return "", err
	}

	path := filepath.Join(h.cfg.ScriptDir, name)
	if err := store.WriteFile(h.fs, path, []byte(*cmd.Script)); err != nil {
		log.Error(err, "Failed to save script", "path", path)
		h.reporter.Report(ctx, core.StatusFailed, LogSaveFailed)
		if h.cfg.RestoreEntrypointOnFailure {
			if err := h.entrypoint.Resume(); err != nil {
				log.Error(err, "Failed to restore entrypoint")
			}
		} else {
			log.Warn("Entrypoint left paused until the next successful update")
		}
		return core.StatusFailed, nil
	}

	if err := h.versions.UpdateVersion(h.identity, cmd.Version); err != nil {
		return "", err
	}
	if err := h.flags.SetSkip(true); err != nil {
		return "", err
	}
	h.reporter.Report(ctx, core.StatusCompleted, LogScriptSaved)

	// The install is already committed and reported; a stuck rename only
	// leaves the entrypoint paused.
	if err := h.entrypoint.Resume(); err != nil {
		h.metrics.ResumeFailures.Inc()
		log.Error(err, "Failed to resume entrypoint after install", "version", cmd.Version)
	}

	log.Info("Update installed", "version", cmd.Version, "file", path)
	return core.StatusCompleted, nil
}

func newCommandFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateAwaiting,
		fsm.Events{
			{Name: EventProcess, Src: []string{StateAwaiting}, Dst: StateProcessing},
			{Name: EventReject, Src: []string{StateAwaiting}, Dst: StateDone},
			{Name: EventFinish, Src: []string{StateProcessing}, Dst: StateDone},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("Update command transition", "from", e.Src, "to", e.Dst)
			},
		},
	)
}

func fire(ctx context.Context, machine *fsm.FSM, event string) {
	if err := machine.Event(context.WithoutCancel(ctx), event); fsmutil.IsRealError(err) {
		log.Warn("Unexpected update command transition", "event", event, "error", err)
	}
}
