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

// HardwareID holds the identity registers in read order:
// version, id3, id2, id1, id0.
type HardwareID [5]byte

func (h HardwareID) Version() byte { return h[0] }
func (h HardwareID) ID3() byte     { return h[1] }
func (h HardwareID) ID2() byte     { return h[2] }
func (h HardwareID) ID1() byte     { return h[3] }
func (h HardwareID) ID0() byte     { return h[4] }

// HAL is the hardware abstraction the updater needs: the identity chip.
type HAL interface {
	// ReadHardwareID reads all five registers. A failure on any register
	// fails the whole read.
	ReadHardwareID(ctx context.Context) (HardwareID, error)

	Close() error
}
