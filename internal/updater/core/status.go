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

import "context"

// Status is the outcome carried by an update status report.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Presence values published on the connect topic.
const (
	PresenceConnected = "CONNECTED"
	PresenceOffline   = "OFFLINE"
)

// Reporter publishes update status reports. Implementations never fail the
// caller: publish errors are logged and dropped.
type Reporter interface {
	Report(ctx context.Context, status Status, log string)
}
