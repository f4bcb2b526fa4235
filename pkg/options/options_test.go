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

package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpOptionsValidate(t *testing.T) {
	o := NewHttpOptions()
	assert.Empty(t, o.Validate())

	o.Addr = ""
	assert.Empty(t, o.Validate())

	o.Addr = "no-port"
	o.ShutdownTimeout = 0
	assert.Len(t, o.Validate(), 2)
}

func TestS3OptionsValidate(t *testing.T) {
	o := NewS3Options()
	assert.Empty(t, o.Validate())

	o.Object = "scripts/main.py"
	assert.Len(t, o.Validate(), 1)

	o.Endpoint = "minio.bench.local:9000"
	assert.Empty(t, o.Validate())
}

func TestMqttDebugFlag(t *testing.T) {
	o := NewMqttOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--mqtt.debug", "--mqtt.client-id", "bench-01"}))
	cfg := o.ToClientConfig()
	assert.True(t, cfg.Debug)
	assert.Equal(t, "bench-01", cfg.ClientID)
	assert.Equal(t, uint16(60), cfg.KeepAlive)
}
