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

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.PollErrors.Add(3)
	m.LoopOutcome.WithLabelValues("COMPLETED").Set(1)
	m.StatusReports.WithLabelValues("FAILED", "sent").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PollErrors))

	path := filepath.Join(t.TempDir(), "fi_updater.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "fi_updater_poll_errors_total 3"))
	assert.True(t, strings.Contains(out, `fi_updater_loop_outcome{outcome="COMPLETED"} 1`))
	assert.True(t, strings.Contains(out, `fi_updater_status_reports_total{result="sent",status="FAILED"} 1`))
}
