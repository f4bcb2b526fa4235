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

package core

import "errors"

// Error taxonomy of the update path. Callers wrap these with fmt.Errorf("...: %w")
// and match them with errors.Is.
var (
	// ErrHardwareRead is fatal: without an identity nothing else can run.
	ErrHardwareRead = errors.New("hardware id read failed")

	// ErrWifiConnect and ErrBrokerConnect abort the update check for this boot.
	ErrWifiConnect   = errors.New("wifi connect failed")
	ErrBrokerConnect = errors.New("broker connect failed")

	// ErrProtocol marks a malformed or invalid update command.
	ErrProtocol = errors.New("malformed update command")

	// ErrPersistence marks a failed write of a record or a received script.
	ErrPersistence = errors.New("persistence failed")

	// ErrTransientPoll is counted by the supervised loop and trips the
	// circuit breaker after too many consecutive occurrences.
	ErrTransientPoll = errors.New("transient poll error")
)
