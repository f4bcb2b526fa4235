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

package ota

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
)

// UpdateCommand is the payload of the update command topic.
type UpdateCommand struct {
	// UpdateAvailable defaults to true when the key is absent.
	UpdateAvailable *bool   `json:"updateAvailable"`
	Script          *string `json:"script"`
	Version         string  `json:"version"`
	FileName        string  `json:"fileName"`
}

func (c *UpdateCommand) Available() bool {
	return c.UpdateAvailable == nil || *c.UpdateAvailable
}

// ParseCommand decodes and validates payload. Every failure wraps
// core.ErrProtocol.
func ParseCommand(payload []byte) (*UpdateCommand, error) {
	var cmd UpdateCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProtocol, err)
	}
	if !cmd.Available() {
		return &cmd, nil
	}

	switch {
	case cmd.Script == nil:
		return nil, fmt.Errorf("%w: missing script", core.ErrProtocol)
	case cmd.Version == "":
		return nil, fmt.Errorf("%w: missing version", core.ErrProtocol)
	}
	if err := validateFileName(cmd.FileName); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProtocol, err)
	}
	return &cmd, nil
}

// validateFileName only admits bare names: the script always lands in the
// state directory.
func validateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("missing fileName")
	case name == "." || name == "..":
		return fmt.Errorf("invalid fileName %q", name)
	case strings.ContainsAny(name, "/\\\x00"), filepath.Base(name) != name:
		return fmt.Errorf("fileName %q must not contain a path", name)
	}
	return nil
}
