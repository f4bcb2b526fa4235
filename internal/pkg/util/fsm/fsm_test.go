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

package fsm

import (
	"context"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRealError(t *testing.T) {
	assert.False(t, IsRealError(nil))
	assert.False(t, IsRealError(fsm.NoTransitionError{}))
	assert.False(t, IsRealError(fsm.CanceledError{}))
	assert.True(t, IsRealError(fsm.InvalidEventError{Event: "go", State: "done"}))
}

func TestSelfTransitionIsNotReal(t *testing.T) {
	f := fsm.NewFSM("polling",
		fsm.Events{{Name: "poll", Src: []string{"ready", "polling"}, Dst: "polling"}},
		fsm.Callbacks{},
	)

	err := f.Event(context.Background(), "poll")
	require.Error(t, err)
	assert.False(t, IsRealError(err))

	err = f.Event(context.Background(), "terminate")
	assert.True(t, IsRealError(err))
}
