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

//go:build linux

package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
)

// i2cSlave is I2C_SLAVE from linux/i2c-dev.h.
const i2cSlave = 0x0703

// settle is the pause between selecting a register and reading it back.
const settle = 10 * time.Millisecond

// I2C reads the identity chip through an i2c-dev character device.
type I2C struct {
	bus  string
	addr uint16
}

var _ core.HAL = (*I2C)(nil)

func NewI2C(bus string, addr uint16) *I2C {
	return &I2C{bus: bus, addr: addr}
}

func (h *I2C) ReadHardwareID(ctx context.Context) (core.HardwareID, error) {
	var id core.HardwareID

	fd, err := unix.Open(h.bus, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return id, fmt.Errorf("opening %s: %w", h.bus, err)
	}
	defer unix.Close(fd)

	if err := unix.IoctlSetInt(fd, i2cSlave, int(h.addr)); err != nil {
		return id, fmt.Errorf("selecting address 0x%02x on %s: %w", h.addr, h.bus, err)
	}

	for i, reg := range Registers {
		if err := ctx.Err(); err != nil {
			return id, err
		}
		v, err := readRegister(fd, reg)
		if err != nil {
			return id, fmt.Errorf("register 0x%02x at 0x%02x: %w", reg, h.addr, err)
		}
		id[i] = v
	}
	return id, nil
}

func readRegister(fd int, reg byte) (byte, error) {
	if _, err := unix.Write(fd, []byte{reg}); err != nil {
		return 0, err
	}
	time.Sleep(settle)

	buf := make([]byte, 1)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, fmt.Errorf("short read")
	}
	return buf[0], nil
}

func (h *I2C) Close() error { return nil }
