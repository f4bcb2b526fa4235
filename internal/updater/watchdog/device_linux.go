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

package watchdog

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// Device feeds a kernel watchdog character device.
type Device struct {
	fd   int
	path string
}

// OpenDevice opens path and programs timeout. Opening the device arms it.
func OpenDevice(path string, timeout time.Duration) (*Device, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening watchdog %s: %w", path, err)
	}

	if err := unix.IoctlSetPointerInt(fd, unix.WDIOC_SETTIMEOUT, int(timeout/time.Second)); err != nil {
		log.Warn("Watchdog refused the timeout, keeping the driver default", "device", path, "error", err)
	}
	return &Device{fd: fd, path: path}, nil
}

func (d *Device) Feed() error {
	if _, err := unix.Write(d.fd, []byte{0}); err != nil {
		return fmt.Errorf("feeding watchdog %s: %w", d.path, err)
	}
	return nil
}

// Close releases the descriptor without the magic close character, so the
// watchdog stays armed for the next boot stage.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
