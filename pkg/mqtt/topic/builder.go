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

import (
	"strings"

	"github.com/autopeer-io/floor-inspector/internal/pkg/mqtt/paths"
)

// TopicBuilder encapsulates the logic for constructing per-device MQTT topic
// strings of the form {root}/{imei}/{segment}.
type TopicBuilder struct {
	root string
}

// NewTopicBuilder creates a TopicBuilder rooted at root. Trailing slashes are
// trimmed; an empty root falls back to DefaultRoot.
func NewTopicBuilder(root string) *TopicBuilder {
	root = strings.TrimRight(root, "/")
	if root == "" {
		root = DefaultRoot
	}
	return &TopicBuilder{root: root}
}

// Root returns the namespace shared by every topic.
func (b *TopicBuilder) Root() string {
	return b.root
}

// ConnectData returns the presence topic. The last will uses it too.
// Direction: Device -> Cloud
func (b *TopicBuilder) ConnectData(imei string) string {
	return b.build(imei, paths.ConnectData)
}

// CheckCommand returns the topic used to announce the installed version.
// Direction: Device -> Cloud
func (b *TopicBuilder) CheckCommand(imei string) string {
	return b.build(imei, paths.FirmwareCheckCommand)
}

// UpdateCommand returns the topic the device subscribes to for its decision.
// Direction: Cloud -> Device
func (b *TopicBuilder) UpdateCommand(imei string) string {
	return b.build(imei, paths.FirmwareUpdateCommand)
}

// UpdateCommandWildcard returns the filter matching every device's command topic.
func (b *TopicBuilder) UpdateCommandWildcard() string {
	return b.build(Wildcard, paths.FirmwareUpdateCommand)
}

// UpdateStatus returns the topic for the update outcome report.
// Direction: Device -> Cloud
func (b *TopicBuilder) UpdateStatus(imei string) string {
	return b.build(imei, paths.FirmwareUpdateStatus)
}

// build is a private helper to construct the final topic string.
// Pattern: {root}/{identifier}/{segment}
func (b *TopicBuilder) build(id, segment string) string {
	return b.root + "/" + id + "/" + segment
}
