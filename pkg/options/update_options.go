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

package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*UpdateOptions)(nil)

// UpdateOptions tunes the supervised update-check loop.
type UpdateOptions struct {
	MaxWait              time.Duration `json:"max-wait" mapstructure:"max-wait"`
	PollInterval         time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
	MaxConsecutiveErrors int           `json:"max-consecutive-errors" mapstructure:"max-consecutive-errors"`
	BackoffStep          time.Duration `json:"backoff-step" mapstructure:"backoff-step"`
	BackoffCap           time.Duration `json:"backoff-cap" mapstructure:"backoff-cap"`
	MemoryReportInterval time.Duration `json:"memory-report-interval" mapstructure:"memory-report-interval"`

	// RestoreEntrypointOnFailure resumes the paused entrypoint when writing
	// a received script fails. Off by default: a failed install halts normal
	// operation until the next successful update.
	RestoreEntrypointOnFailure bool `json:"restore-entrypoint-on-failure" mapstructure:"restore-entrypoint-on-failure"`
}

func NewUpdateOptions() *UpdateOptions {
	return &UpdateOptions{
		MaxWait:              300 * time.Second,
		PollInterval:         100 * time.Millisecond,
		MaxConsecutiveErrors: 10,
		BackoffStep:          500 * time.Millisecond,
		BackoffCap:           5 * time.Second,
		MemoryReportInterval: 30 * time.Second,
	}
}

func (o *UpdateOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("--update.max-wait must be positive"))
	}
	if o.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("--update.poll-interval must be positive"))
	}
	if o.MaxConsecutiveErrors < 1 {
		errs = append(errs, fmt.Errorf("--update.max-consecutive-errors must be at least 1"))
	}
	if o.BackoffStep <= 0 || o.BackoffCap < o.BackoffStep {
		errs = append(errs, fmt.Errorf("--update.backoff-step must be positive and not exceed --update.backoff-cap"))
	}

	return errs
}

func (o *UpdateOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.MaxWait, "update.max-wait", o.MaxWait, "How long to wait for an update command before giving up.")
	fs.DurationVar(&o.PollInterval, "update.poll-interval", o.PollInterval, "Sleep between message checks.")
	fs.IntVar(&o.MaxConsecutiveErrors, "update.max-consecutive-errors", o.MaxConsecutiveErrors, "Consecutive poll failures that trip the circuit breaker.")
	fs.DurationVar(&o.BackoffStep, "update.backoff-step", o.BackoffStep, "Linear backoff added per consecutive poll failure.")
	fs.DurationVar(&o.BackoffCap, "update.backoff-cap", o.BackoffCap, "Upper bound of the poll failure backoff.")
	fs.DurationVar(&o.MemoryReportInterval, "update.memory-report-interval", o.MemoryReportInterval, "Interval of the debug memory report inside the loop (0 disables).")
	fs.BoolVar(&o.RestoreEntrypointOnFailure, "update.restore-entrypoint-on-failure", o.RestoreEntrypointOnFailure,
		"Resume the paused entrypoint when a received script cannot be saved.")
}
