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
	"fmt"
	"strings"

	dbus "github.com/godbus/dbus/v5"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

const (
	nmService        = "org.freedesktop.NetworkManager"
	nmPath           = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmDevice         = nmService + ".Device"
	nmWireless       = nmService + ".Device.Wireless"
	nmAccessPoint    = nmService + ".AccessPoint"
	nmStateActivated = 100

	propertiesGet = "org.freedesktop.DBus.Properties.Get"
)

// NetworkManager drives one wireless interface through NetworkManager on the
// system bus.
type NetworkManager struct {
	conn   *dbus.Conn
	iface  string
	device dbus.ObjectPath
}

var (
	_ core.Network      = (*NetworkManager)(nil)
	_ core.LinkReporter = (*NetworkManager)(nil)
)

func NewNetworkManager(iface string) (*NetworkManager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to the system bus: %w", err)
	}

	var device dbus.ObjectPath
	if err := conn.Object(nmService, nmPath).Call(nmService+".GetDeviceByIpIface", 0, iface).Store(&device); err != nil {
		return nil, fmt.Errorf("looking up device %s: %w", iface, err)
	}

	log.Debug("Using NetworkManager device", "interface", iface, "path", device)
	return &NetworkManager{conn: conn, iface: iface, device: device}, nil
}

func (n *NetworkManager) deviceObject() dbus.BusObject {
	return n.conn.Object(nmService, n.device)
}

// Scan requests a fresh scan and lists the SSIDs NetworkManager knows about.
// NetworkManager rate-limits scans; a refused request still returns the
// cached access points.
func (n *NetworkManager) Scan(ctx context.Context) ([]string, error) {
	if call := n.deviceObject().CallWithContext(ctx, nmWireless+".RequestScan", 0, map[string]dbus.Variant{}); call.Err != nil {
		log.Debug("Scan request refused", "interface", n.iface, "error", call.Err)
	}

	var aps []dbus.ObjectPath
	if err := n.deviceObject().CallWithContext(ctx, nmWireless+".GetAllAccessPoints", 0).Store(&aps); err != nil {
		return nil, fmt.Errorf("listing access points: %w", err)
	}

	ssids := make([]string, 0, len(aps))
	for _, ap := range aps {
		ssid, err := n.accessPointSSID(ctx, ap)
		if err != nil {
			log.Debug("Skipping access point", "path", ap, "error", err)
			continue
		}
		if ssid != "" {
			ssids = append(ssids, ssid)
		}
	}
	return ssids, nil
}

// Connect adds a connection profile for ssid and activates it on the device.
func (n *NetworkManager) Connect(ctx context.Context, ssid, password string) error {
	var settingsPath, active dbus.ObjectPath
	err := n.conn.Object(nmService, nmPath).CallWithContext(ctx, nmService+".AddAndActivateConnection", 0,
		connectionSettings(ssid, password), n.device, dbus.ObjectPath("/")).Store(&settingsPath, &active)
	if err != nil {
		return fmt.Errorf("activating %s: %w", ssid, err)
	}
	log.Debug("Activation requested", "ssid", ssid, "connection", active)
	return nil
}

func (n *NetworkManager) IsConnected(ctx context.Context) (bool, error) {
	v, err := property(ctx, n.deviceObject(), nmDevice+".State")
	if err != nil {
		return false, err
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return false, fmt.Errorf("unexpected device state %v", v)
	}
	return state == nmStateActivated, nil
}

func (n *NetworkManager) Disconnect(ctx context.Context) error {
	return n.deviceObject().CallWithContext(ctx, nmDevice+".Disconnect", 0).Err
}

func (n *NetworkManager) ActiveLink(ctx context.Context) (core.Link, error) {
	v, err := property(ctx, n.deviceObject(), nmWireless+".ActiveAccessPoint")
	if err != nil {
		return core.Link{}, err
	}
	ap, ok := v.Value().(dbus.ObjectPath)
	if !ok || ap == "/" {
		return core.Link{}, fmt.Errorf("no active access point")
	}

	ssid, err := n.accessPointSSID(ctx, ap)
	if err != nil {
		return core.Link{}, err
	}
	strength, err := property(ctx, n.conn.Object(nmService, ap), nmAccessPoint+".Strength")
	if err != nil {
		return core.Link{}, err
	}
	s, _ := strength.Value().(byte)
	return core.Link{SSID: ssid, Strength: int(s)}, nil
}

func (n *NetworkManager) accessPointSSID(ctx context.Context, ap dbus.ObjectPath) (string, error) {
	v, err := property(ctx, n.conn.Object(nmService, ap), nmAccessPoint+".Ssid")
	if err != nil {
		return "", err
	}
	raw, ok := v.Value().([]byte)
	if !ok {
		return "", fmt.Errorf("unexpected ssid %v", v)
	}
	return string(raw), nil
}

// property reads one D-Bus property. Unlike BusObject.GetProperty it honours
// ctx, so a wedged NetworkManager cannot outlive the caller's budget.
func property(ctx context.Context, obj dbus.BusObject, name string) (dbus.Variant, error) {
	var v dbus.Variant
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return v, fmt.Errorf("property name %q has no interface", name)
	}
	if err := obj.CallWithContext(ctx, propertiesGet, 0, name[:i], name[i+1:]).Store(&v); err != nil {
		return v, fmt.Errorf("reading %s: %w", name, err)
	}
	return v, nil
}

// connectionSettings builds the profile passed to AddAndActivateConnection.
// An empty password selects an open network.
func connectionSettings(ssid, password string) map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":   dbus.MakeVariant(ssid),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
	}
	if password != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(password),
		}
	}
	return settings
}
