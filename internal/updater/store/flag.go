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

package store

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// UpdateFlag is the persisted skip-update record.
type UpdateFlag struct {
	SkipUpdate bool `json:"SKIP_UPDATE"`
}

type FlagStore struct {
	fs   afero.Fs
	path string
}

func NewFlagStore(fs afero.Fs, path string) *FlagStore {
	return &FlagStore{fs: fs, path: path}
}

func (s *FlagStore) Path() string {
	return s.path
}

// Load returns the persisted flag. A missing record yields an error matching
// fs.ErrNotExist.
func (s *FlagStore) Load() (*UpdateFlag, error) {
	var flag UpdateFlag
	if err := readRecord(s.fs, s.path, &flag); err != nil {
		return nil, err
	}
	return &flag, nil
}

// IsSkipSet fails open: a missing or undecodable record means the device
// must check for updates.
func (s *FlagStore) IsSkipSet() bool {
	flag, err := s.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Skip flag unreadable, assuming update check is required", "path", s.path, "error", err)
		}
		return false
	}
	return flag.SkipUpdate
}

// SetSkip rewrites the whole record.
func (s *FlagStore) SetSkip(skip bool) error {
	if err := writeRecord(s.fs, s.path, &UpdateFlag{SkipUpdate: skip}); err != nil {
		return err
	}
	log.Debug("Skip flag written", "skip", skip)
	return nil
}

// EnsureExists writes a false flag when no record exists yet. An existing
// record, readable or not, is left alone.
func (s *FlagStore) EnsureExists() (bool, error) {
	if _, err := s.fs.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := s.SetSkip(false); err != nil {
		return false, err
	}
	return true, nil
}
