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

package entrypoint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSwapper(t *testing.T, files ...string) (*Swapper, afero.Fs) {
	t.Helper()
	memfs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(memfs, "/app/"+f, []byte("print('"+f+"')"), 0o644))
	}
	return NewSwapper(memfs, "/app", "main.py", "main.bak.py"), memfs
}

func assertState(t *testing.T, s *Swapper, want State) {
	t.Helper()
	got, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPauseResume(t *testing.T) {
	s, memfs := newTestSwapper(t, "main.py")
	assertState(t, s, StateActive)

	require.NoError(t, s.Pause())
	assertState(t, s, StatePaused)

	// Idempotent.
	require.NoError(t, s.Pause())
	assertState(t, s, StatePaused)

	require.NoError(t, s.Resume())
	assertState(t, s, StateActive)

	data, err := afero.ReadFile(memfs, "/app/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print('main.py')", string(data))
}

func TestPauseWithoutEntrypoint(t *testing.T) {
	s, _ := newTestSwapper(t)
	require.NoError(t, s.Pause())
	assertState(t, s, StateMissing)
	require.NoError(t, s.Resume())
	assertState(t, s, StateMissing)
}

func TestResumeNeverClobbersActive(t *testing.T) {
	s, memfs := newTestSwapper(t, "main.py", "main.bak.py")
	assertState(t, s, StateConflict)

	require.NoError(t, s.Resume())
	assertState(t, s, StateConflict)

	data, err := afero.ReadFile(memfs, "/app/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print('main.py')", string(data))
}

func TestActivePath(t *testing.T) {
	s, _ := newTestSwapper(t)
	assert.Equal(t, "/app/main.py", s.ActivePath())
}
