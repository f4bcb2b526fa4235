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
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

const (
	// UnknownVersion is recorded until the first successful install.
	UnknownVersion = "UNKNOWN"

	DefaultModel = "RSX-511"
)

// DeviceIdentity is the persisted identity record.
type DeviceIdentity struct {
	IMEI           string `json:"IMEI"`
	CurrentVersion string `json:"CURRENT_VERSION"`
	CurrentModel   string `json:"CURRENT_MODEL"`
}

// IdentityStore owns the identity record. The IMEI is derived from hardware
// once and never changes afterwards.
type IdentityStore struct {
	fs    afero.Fs
	path  string
	hal   core.HAL
	model string
}

func NewIdentityStore(fs afero.Fs, path string, hal core.HAL, model string) *IdentityStore {
	if model == "" {
		model = DefaultModel
	}
	return &IdentityStore{fs: fs, path: path, hal: hal, model: model}
}

// Path returns the location of the record.
func (s *IdentityStore) Path() string {
	return s.path
}

// Load returns the persisted record without touching hardware. A missing
// record yields an error matching fs.ErrNotExist.
func (s *IdentityStore) Load() (*DeviceIdentity, error) {
	var id DeviceIdentity
	if err := readRecord(s.fs, s.path, &id); err != nil {
		return nil, err
	}
	if id.IMEI == "" {
		return nil, fmt.Errorf("decoding %s: empty IMEI", s.path)
	}
	return &id, nil
}

// GetOrCreate returns the persisted identity, or bootstraps it from the
// hardware registers when no usable record exists. Hardware failures wrap
// core.ErrHardwareRead and are fatal to the caller.
func (s *IdentityStore) GetOrCreate(ctx context.Context) (*DeviceIdentity, error) {
	id, err := s.Load()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		// The IMEI is a pure function of the registers, so a damaged record is
		// rebuilt rather than trusted. Only the version is lost.
		log.Warn("Identity record unreadable, rebuilding from hardware", "path", s.path, "error", err)
	}

	hw, err := s.hal.ReadHardwareID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrHardwareRead, err)
	}

	id = &DeviceIdentity{
		IMEI:           FormatIMEI(hw),
		CurrentVersion: UnknownVersion,
		CurrentModel:   s.model,
	}
	if err := writeRecord(s.fs, s.path, id); err != nil {
		return nil, err
	}

	log.Info("Device identity created", "imei", id.IMEI, "model", id.CurrentModel)
	return id, nil
}

// UpdateVersion rewrites the whole record with version. id is updated only
// after the write succeeded.
func (s *IdentityStore) UpdateVersion(id *DeviceIdentity, version string) error {
	next := *id
	next.CurrentVersion = version
	if err := writeRecord(s.fs, s.path, &next); err != nil {
		return err
	}
	*id = next
	log.Info("Device version updated", "imei", id.IMEI, "version", version)
	return nil
}

// FormatIMEI lays the registers out with the two constant bytes of the
// numbering scheme: id1, 0x13, id3, 0x00, version, 0x22, id2, id0.
func FormatIMEI(hw core.HardwareID) string {
	return fmt.Sprintf("%02X%02X%02X%02X%02X%02X%02X%02X",
		hw.ID1(), 0x13, hw.ID3(), 0x00, hw.Version(), 0x22, hw.ID2(), hw.ID0())
}
