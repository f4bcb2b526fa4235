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

package hub

import (
	"fmt"
	"time"
)

// Outcome is the terminal result of Session.RunSupervised.
type Outcome string

const (
	OutcomeCompleted     Outcome = "COMPLETED"
	OutcomeTimedOut      Outcome = "TIMED_OUT"
	OutcomeCircuitBroken Outcome = "CIRCUIT_BROKEN"
	// OutcomeCancelled is returned when the process is asked to stop between
	// iterations.
	OutcomeCancelled Outcome = "CANCELLED"
)

// LoopPolicy bounds the supervised loop.
type LoopPolicy struct {
	MaxWait              time.Duration
	PollInterval         time.Duration
	WatchdogTimeout      time.Duration
	MaxConsecutiveErrors int

	BackoffStep time.Duration
	BackoffCap  time.Duration

	// MemoryReportInterval enables a debug heap report; 0 disables it.
	MemoryReportInterval time.Duration
}

func DefaultLoopPolicy() LoopPolicy {
	return LoopPolicy{
		MaxWait:              300 * time.Second,
		PollInterval:         100 * time.Millisecond,
		WatchdogTimeout:      8 * time.Second,
		MaxConsecutiveErrors: 10,
		BackoffStep:          500 * time.Millisecond,
		BackoffCap:           5 * time.Second,
		MemoryReportInterval: 30 * time.Second,
	}
}

// Backoff returns the sleep after the n-th consecutive failure:
// min(n*BackoffStep, BackoffCap).
func (p LoopPolicy) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := time.Duration(n) * p.BackoffStep
	if d > p.BackoffCap || d < 0 {
		return p.BackoffCap
	}
	return d
}

// Validate rejects policies that would starve the watchdog.
func (p LoopPolicy) Validate() error {
	switch {
	case p.MaxWait <= 0 || p.PollInterval <= 0:
		return fmt.Errorf("max wait and poll interval must be positive")
	case p.MaxConsecutiveErrors < 1:
		return fmt.Errorf("max consecutive errors must be at least 1")
	case p.WatchdogTimeout <= 0:
		return fmt.Errorf("watchdog timeout must be positive")
	case p.BackoffCap >= p.WatchdogTimeout:
		return fmt.Errorf("backoff cap %s must stay below the watchdog timeout %s", p.BackoffCap, p.WatchdogTimeout)
	case p.PollInterval >= p.WatchdogTimeout:
		return fmt.Errorf("poll interval %s must stay below the watchdog timeout %s", p.PollInterval, p.WatchdogTimeout)
	}
	return nil
}
