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

package hal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

func TestNewMock(t *testing.T) {
	t.Setenv(MockIDEnv, "05A1B2C3D4")

	opts := options.NewDeviceOptions()
	opts.HALDriver = options.HALDriverMock

	h, err := New(opts)
	require.NoError(t, err)

	id, err := h.ReadHardwareID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.HardwareID{0x05, 0xA1, 0xB2, 0xC3, 0xD4}, id)
	assert.Equal(t, byte(0x05), id.Version())
	assert.Equal(t, byte(0xD4), id.ID0())
}

func TestNewMockRejectsBadOverride(t *testing.T) {
	t.Setenv(MockIDEnv, "xyz")

	opts := options.NewDeviceOptions()
	opts.HALDriver = options.HALDriverMock
	_, err := New(opts)
	assert.Error(t, err)
}

func TestI2CMissingBus(t *testing.T) {
	h := NewI2C("/nonexistent/i2c-9", 0x48)
	_, err := h.ReadHardwareID(context.Background())
	assert.Error(t, err)
}
