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

package wifi

import (
	"context"
	"testing"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/floor-inspector/pkg/options"
)

func TestConnectionSettings(t *testing.T) {
	secured := connectionSettings("lab", "secret")
	assert.Equal(t, []byte("lab"), secured["802-11-wireless"]["ssid"].Value())
	assert.Equal(t, "wpa-psk", secured["802-11-wireless-security"]["key-mgmt"].Value())
	assert.Equal(t, "secret", secured["802-11-wireless-security"]["psk"].Value())

	open := connectionSettings("cafe", "")
	assert.NotContains(t, open, "802-11-wireless-security")
	assert.Equal(t, "cafe", open["connection"]["id"].Value())
}

func TestNewUnmanaged(t *testing.T) {
	opts := options.NewWifiOptions()
	opts.Backend = options.WifiBackendNone

	n, err := New(opts)
	require.NoError(t, err)

	ok, err := n.IsConnected(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewUnknownBackend(t *testing.T) {
	opts := options.NewWifiOptions()
	opts.Backend = "iwd"
	_, err := New(opts)
	assert.Error(t, err)
}

// busObject answers Properties.Get calls, or blocks until the caller gives up
// when hang is set.
type busObject struct {
	dbus.BusObject

	hang   bool
	method string
	args   []interface{}
	value  interface{}
}

func (o *busObject) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.method, o.args = method, args
	if o.hang {
		<-ctx.Done()
		return &dbus.Call{Err: ctx.Err()}
	}
	return &dbus.Call{Body: []interface{}{dbus.MakeVariant(o.value)}}
}

func TestPropertySplitsInterfaceAndName(t *testing.T) {
	obj := &busObject{value: uint32(nmStateActivated)}

	v, err := property(context.Background(), obj, nmDevice+".State")
	require.NoError(t, err)
	assert.Equal(t, uint32(nmStateActivated), v.Value())
	assert.Equal(t, propertiesGet, obj.method)
	assert.Equal(t, []interface{}{nmDevice, "State"}, obj.args)
}

func TestPropertyHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := property(ctx, &busObject{hang: true}, nmWireless+".ActiveAccessPoint")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("property read outlived its context")
	}
}

func TestPropertyRejectsBareName(t *testing.T) {
	_, err := property(context.Background(), &busObject{}, "State")
	assert.Error(t, err)
}
