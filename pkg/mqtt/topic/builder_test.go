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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicBuilder(t *testing.T) {
	b := NewTopicBuilder("floor-inspector/device/")

	assert.Equal(t, "floor-inspector/device", b.Root())
	assert.Equal(t, "floor-inspector/device/ABC/connect/data", b.ConnectData("ABC"))
	assert.Equal(t, "floor-inspector/device/ABC/firmware/check/command", b.CheckCommand("ABC"))
	assert.Equal(t, "floor-inspector/device/ABC/firmware/update/command", b.UpdateCommand("ABC"))
	assert.Equal(t, "floor-inspector/device/ABC/firmware/update/status/command", b.UpdateStatus("ABC"))
	assert.Equal(t, "floor-inspector/device/+/firmware/update/command", b.UpdateCommandWildcard())
}

func TestTopicBuilderDefaultRoot(t *testing.T) {
	assert.Equal(t, DefaultRoot, NewTopicBuilder("").Root())
}
