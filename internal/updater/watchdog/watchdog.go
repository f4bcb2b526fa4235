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

// Package watchdog implements the liveness signal fed by the update loop.
package watchdog

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

// New returns the watchdog selected by opts.
func New(opts *options.WatchdogOptions) (core.Watchdog, error) {
	switch opts.Driver {
	case options.WatchdogDriverSystemd:
		return NewSystemd(opts.Timeout)
	case options.WatchdogDriverDevice:
		return OpenDevice(opts.Device, opts.Timeout)
	case options.WatchdogDriverNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown watchdog driver %q", opts.Driver)
	}
}

// Nop satisfies core.Watchdog without supervising anything.
type Nop struct{}

func (Nop) Feed() error  { return nil }
func (Nop) Close() error { return nil }

// Systemd feeds the service manager's watchdog (WatchdogSec=) through the
// notify socket.
type Systemd struct {
	notify func(unsetEnvironment bool, state string) (bool, error)
}

func NewSystemd(timeout time.Duration) (*Systemd, error) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return nil, fmt.Errorf("reading systemd watchdog settings: %w", err)
	}
	switch {
	case interval == 0:
		log.Warn("systemd watchdog is not enabled for this unit, feeds are ignored")
	case interval < timeout:
		log.Warn("systemd watchdog is shorter than the configured timeout",
			"watchdogSec", interval, "timeout", timeout)
	default:
		log.Info("systemd watchdog enabled", "watchdogSec", interval)
	}
	return &Systemd{notify: daemon.SdNotify}, nil
}

func (s *Systemd) Feed() error {
	_, err := s.notify(false, daemon.SdNotifyWatchdog)
	return err
}

// Status publishes a free-form status line shown by systemctl status.
func (s *Systemd) Status(msg string) {
	if _, err := s.notify(false, "STATUS="+msg); err != nil {
		log.Debug("sd_notify status failed", "error", err)
	}
}

func (s *Systemd) Close() error { return nil }
