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

package mqtt

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// pahoLogger feeds the paho debug and error streams into pkg/log.
type pahoLogger struct {
	component string
	errors    bool
}

func (l pahoLogger) Println(v ...any) {
	l.emit(fmt.Sprintln(v...))
}

func (l pahoLogger) Printf(format string, v ...any) {
	l.emit(fmt.Sprintf(format, v...))
}

func (l pahoLogger) emit(msg string) {
	msg = strings.TrimSpace(msg)
	if l.errors {
		log.Warn(msg, "component", l.component)
		return
	}
	log.Debug(msg, "component", l.component)
}
