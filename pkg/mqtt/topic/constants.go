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

package topic

// Standard MQTT wildcard definitions.
const (
	// Wildcard is the single-level wildcard "+".
	// Example: "floor-inspector/device/+/connect/data" matches every device.
	Wildcard = "+"

	// MultiWildcard is the multi-level wildcard "#". It must be the last
	// character in the topic filter.
	MultiWildcard = "#"
)

// DefaultRoot is the namespace used by deployed devices.
const DefaultRoot = "floor-inspector/device"
