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

//go:build !linux

package hal

import (
	"context"
	"fmt"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
)

type I2C struct {
	bus string
}

func NewI2C(bus string, _ uint16) *I2C {
	return &I2C{bus: bus}
}

func (h *I2C) ReadHardwareID(context.Context) (core.HardwareID, error) {
	return core.HardwareID{}, fmt.Errorf("i2c bus %s is only supported on linux, use the mock driver", h.bus)
}

func (h *I2C) Close() error { return nil }
