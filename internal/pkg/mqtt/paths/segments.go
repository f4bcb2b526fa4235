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

package paths

// Topic segments for the floor-inspector device protocol. Every segment is
// appended to {root}/{imei}. Changing a value breaks deployed devices.

// Downstream: Cloud -> Device
const (
	// FirmwareUpdateCommand carries the update decision and, when an update
	// is available, the script body.
	// Payload: { "updateAvailable": true, "fileName": "...", "script": "...", "version": "..." }
	FirmwareUpdateCommand = "firmware/update/command"
)

// Upstream: Device -> Cloud
const (
	// ConnectData announces presence. The broker publishes the OFFLINE will
	// on the same topic when the device vanishes.
	// Payload: { "imei": "...", "status": "CONNECTED", "timestamp": 1700000000 }
	ConnectData = "connect/data"

	// FirmwareCheckCommand asks the cloud whether a newer script exists.
	// Payload: { "imei": "...", "currentVersion": "...", "currentModel": "..." }
	FirmwareCheckCommand = "firmware/check/command"

	// FirmwareUpdateStatus reports the outcome of an update command.
	// Payload: { "imei": "...", "status": "SUCCESS", "log": "..." }
	FirmwareUpdateStatus = "firmware/update/status/command"
)
