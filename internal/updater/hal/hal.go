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

// Package hal reads the device identity registers.
package hal

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

// Identity chip registers, in read order.
const (
	RegVersion byte = 0x00
	RegID3     byte = 0x01
	RegID2     byte = 0x02
	RegID1     byte = 0x03
	RegID0     byte = 0x04
)

// Registers lists the registers in the order of core.HardwareID.
var Registers = [5]byte{RegVersion, RegID3, RegID2, RegID1, RegID0}

// MockIDEnv overrides the identity returned by the mock driver, as ten hex
// digits (version, id3, id2, id1, id0).
const MockIDEnv = "FI_UPDATER_MOCK_HWID"

// New returns the HAL selected by opts.
func New(opts *options.DeviceOptions) (core.HAL, error) {
	switch opts.HALDriver {
	case options.HALDriverI2C:
		return NewI2C(opts.I2CBus, opts.I2CAddress), nil
	case options.HALDriverMock:
		id := Mock{ID: core.HardwareID{0x01, 0x02, 0x03, 0x04, 0x05}}
		if env := os.Getenv(MockIDEnv); env != "" {
			raw, err := hex.DecodeString(env)
			if err != nil || len(raw) != len(id.ID) {
				return nil, fmt.Errorf("%s must be %d hex bytes, got %q", MockIDEnv, len(id.ID), env)
			}
			copy(id.ID[:], raw)
		}
		log.Info("Using mock hardware id", "id", hex.EncodeToString(id.ID[:]))
		return &id, nil
	default:
		return nil, fmt.Errorf("unknown hal driver %q", opts.HALDriver)
	}
}

// Mock returns a fixed identity, or Err when set.
type Mock struct {
	ID  core.HardwareID
	Err error

	Reads int
}

var _ core.HAL = (*Mock)(nil)

func (m *Mock) ReadHardwareID(context.Context) (core.HardwareID, error) {
	m.Reads++
	if m.Err != nil {
		return core.HardwareID{}, m.Err
	}
	return m.ID, nil
}

func (m *Mock) Close() error { return nil }
