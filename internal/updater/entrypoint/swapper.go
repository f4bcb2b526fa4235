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

// Package entrypoint keeps the device's normal operating script from running
// while an update is being staged. It is a mutual-exclusion mechanism, not a
// rollback: a paused entrypoint stays paused until Resume is called.
package entrypoint

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// State describes which of the two entrypoint files are present.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
	// StateConflict means both files exist; Resume refuses to clobber the
	// active entrypoint in that case.
	StateConflict State = "conflict"
	StateMissing  State = "missing"
)

type Swapper struct {
	fs     afero.Fs
	active string
	backup string
}

func NewSwapper(fs afero.Fs, dir, active, backup string) *Swapper {
	return &Swapper{
		fs:     fs,
		active: filepath.Join(dir, active),
		backup: filepath.Join(dir, backup),
	}
}

// Pause moves the active entrypoint to the backup name. An absent entrypoint
// is not an error.
func (s *Swapper) Pause() error {
	ok, err := s.exists(s.active)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("No entrypoint to pause", "path", s.active)
		return nil
	}
	if err := s.fs.Rename(s.active, s.backup); err != nil {
		return fmt.Errorf("%w: pausing entrypoint: %v", core.ErrPersistence, err)
	}
	log.Info("Entrypoint paused", "from", s.active, "to", s.backup)
	return nil
}

// Resume moves the backup back into place when the backup exists and the
// active entrypoint does not. Every other combination is a no-op.
func (s *Swapper) Resume() error {
	state, err := s.State()
	if err != nil {
		return err
	}
	if state != StatePaused {
		log.Debug("Entrypoint resume skipped", "state", state)
		return nil
	}
	if err := s.fs.Rename(s.backup, s.active); err != nil {
		return fmt.Errorf("%w: resuming entrypoint: %v", core.ErrPersistence, err)
	}
	log.Info("Entrypoint resumed", "path", s.active)
	return nil
}

func (s *Swapper) State() (State, error) {
	active, err := s.exists(s.active)
	if err != nil {
		return "", err
	}
	backup, err := s.exists(s.backup)
	if err != nil {
		return "", err
	}

	switch {
	case active && backup:
		return StateConflict, nil
	case active:
		return StateActive, nil
	case backup:
		return StatePaused, nil
	default:
		return StateMissing, nil
	}
}

// ActivePath is the location of the entrypoint script.
func (s *Swapper) ActivePath() string {
	return s.active
}

func (s *Swapper) exists(path string) (bool, error) {
	_, err := s.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
