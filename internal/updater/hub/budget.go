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
	"context"
	"time"
)

// Budget derives deadlines from the watchdog timeout. Any single blocking
// call gets half of it, so a call that hits its deadline still leaves room
// for the next feed.
type Budget struct {
	watchdogTimeout time.Duration
}

func NewBudget(watchdogTimeout time.Duration) Budget {
	return Budget{watchdogTimeout: watchdogTimeout}
}

// Deadline is the longest a single blocking operation may take.
func (b Budget) Deadline() time.Duration {
	return b.watchdogTimeout / 2
}

// WithDeadline bounds ctx by Deadline.
func (b Budget) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.Deadline())
}

// Overran reports whether a feed-to-feed gap would have tripped the watchdog.
func (b Budget) Overran(gap time.Duration) bool {
	return gap >= b.watchdogTimeout
}
