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

// Package wifi provides the wireless drivers used by the connection
// supervisor.
package wifi

import (
	"context"
	"fmt"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/options"
)

// New returns the driver selected by opts.
func New(opts *options.WifiOptions) (core.Network, error) {
	switch opts.Backend {
	case options.WifiBackendNetworkManager:
		return NewNetworkManager(opts.Interface)
	case options.WifiBackendNone:
		return Unmanaged{}, nil
	default:
		return nil, fmt.Errorf("unknown wifi backend %q", opts.Backend)
	}
}

// Unmanaged is used when the link is brought up by something else. It always
// reports an association, which short-circuits the scan.
type Unmanaged struct{}

var _ core.Network = Unmanaged{}

func (Unmanaged) Scan(context.Context) ([]string, error) { return nil, nil }
func (Unmanaged) Connect(context.Context, string, string) error { return nil }
func (Unmanaged) IsConnected(context.Context) (bool, error) { return true, nil }
func (Unmanaged) Disconnect(context.Context) error { return nil }
