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

package core

import "context"

// Network is the wireless driver used by the connection supervisor.
type Network interface {
	// Scan returns the SSIDs currently visible.
	Scan(ctx context.Context) ([]string, error)

	// Connect requests association with ssid. It returns once the request is
	// accepted; callers poll IsConnected for the outcome.
	Connect(ctx context.Context, ssid, password string) error

	IsConnected(ctx context.Context) (bool, error)

	Disconnect(ctx context.Context) error
}

// Link describes the active association.
type Link struct {
	SSID string
	// Strength is the signal quality in percent, as reported by the driver.
	Strength int
}

// LinkReporter is implemented by drivers that can describe the active link.
type LinkReporter interface {
	ActiveLink(ctx context.Context) (Link, error)
}
