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

package log

import (
	"fmt"
	"maps"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"go.uber.org/zap/zapcore"
)

// journalCore sends entries straight to systemd-journald with each field as
// its own journal variable, so `journalctl IMEI=...` works on the device.
type journalCore struct {
	zapcore.LevelEnabler
	vars map[string]string
	send func(msg string, pri journal.Priority, vars map[string]string) error
}

func newJournalCore(enab zapcore.LevelEnabler) *journalCore {
	return &journalCore{LevelEnabler: enab, vars: map[string]string{}, send: journal.Send}
}

func (c *journalCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.vars = maps.Clone(c.vars)
	addJournalVars(clone.vars, fields)
	return &clone
}

func (c *journalCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *journalCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	vars := maps.Clone(c.vars)
	addJournalVars(vars, fields)
	if ent.LoggerName != "" {
		vars["LOGGER"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		vars["CODE_FILE"] = ent.Caller.TrimmedPath()
		vars["CODE_LINE"] = fmt.Sprint(ent.Caller.Line)
		vars["CODE_FUNC"] = ent.Caller.Function
	}
	if ent.Stack != "" {
		vars["STACKTRACE"] = ent.Stack
	}
	return c.send(ent.Message, journalPriority(ent.Level), vars)
}

func (c *journalCore) Sync() error { return nil }

func addJournalVars(vars map[string]string, fields []zapcore.Field) {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		vars[journalKey(k)] = fmt.Sprint(v)
	}
}

// journalKey maps a field name onto the journal's [A-Z0-9_] alphabet.
// Leading underscores are reserved for trusted fields and get stripped.
func journalKey(k string) string {
	key := strings.TrimLeft(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, k), "_")
	if key == "" || key[0] >= '0' && key[0] <= '9' {
		key = "F_" + key
	}
	return key
}

func journalPriority(l zapcore.Level) journal.Priority {
	switch {
	case l <= zapcore.DebugLevel:
		return journal.PriDebug
	case l == zapcore.InfoLevel:
		return journal.PriInfo
	case l == zapcore.WarnLevel:
		return journal.PriWarning
	case l == zapcore.ErrorLevel:
		return journal.PriErr
	}
	return journal.PriCrit
}
