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

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
)

// MessageFunc handles one received command. It runs to completion inside a
// single loop iteration.
type MessageFunc func(ctx context.Context, payload []byte)

// pollFunc performs one non-blocking message check.
type pollFunc func(ctx context.Context) (payload []byte, ok bool, err error)

// Session is an open broker session owned by the Supervisor. Handlers never
// see it: they end the loop through Completion.
type Session struct {
	sup        *Supervisor
	inbox      *Inbox
	completion *Completion
	reporter   *Reporter
	poll       pollFunc

	startTime         time.Time
	consecutiveErrors int
}

func newSession(sup *Supervisor) *Session {
	s := &Session{
		sup:        sup,
		inbox:      NewInbox(sup.cfg.InboxSize, sup.cfg.Metrics),
		completion: &Completion{},
		reporter: NewReporter(sup.cfg.IMEI, sup.cfg.Topics.UpdateStatus(sup.cfg.IMEI),
			sup.cfg.Client, sup.cfg.Budget, sup.cfg.Metrics),
	}
	s.poll = s.pollInbox
	return s
}

// open subscribes to the command topic and announces presence.
func (s *Session) open(ctx context.Context) error {
	cfg := s.sup.cfg

	subCtx, cancel := cfg.Budget.WithDeadline(ctx)
	defer cancel()
	if err := cfg.Client.Subscribe(subCtx, cfg.Topics.UpdateCommand(cfg.IMEI), 1, s.inbox.Handler()); err != nil {
		return fmt.Errorf("subscribing to update commands: %w", err)
	}

	return s.publish(ctx, cfg.Topics.ConnectData(cfg.IMEI), Presence{
		IMEI:      cfg.IMEI,
		Status:    core.PresenceConnected,
		Timestamp: cfg.Clock.Now().Unix(),
	})
}

// Completion is the signal the command handler flips to end the loop.
func (s *Session) Completion() *Completion {
	return s.completion
}

// Reporter publishes status events for this session.
func (s *Session) Reporter() *Reporter {
	return s.reporter
}

// RequestCheck asks the cloud whether a newer script exists for version.
func (s *Session) RequestCheck(ctx context.Context, version, model string) error {
	cfg := s.sup.cfg
	log.Info("Requesting update check", "imei", cfg.IMEI, "version", version, "model", model)
	return s.publish(ctx, cfg.Topics.CheckCommand(cfg.IMEI), CheckRequest{
		IMEI:           cfg.IMEI,
		CurrentVersion: version,
		CurrentModel:   model,
	})
}

func (s *Session) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := s.sup.cfg.Budget.WithDeadline(ctx)
	defer cancel()
	if err := s.sup.cfg.Client.Publish(ctx, topic, 1, false, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	log.Debug("Published", "topic", topic, "payload", string(payload))
	return nil
}

// RunSupervised polls for commands until the handler signals completion,
// policy.MaxWait elapses, policy.MaxConsecutiveErrors polls fail in a row,
// or ctx is cancelled between iterations. Every iteration feeds the
// watchdog exactly once. A command already dispatched always runs to its
// end, even when ctx is cancelled.
func (s *Session) RunSupervised(ctx context.Context, onMessage MessageFunc, policy LoopPolicy) Outcome {
	outcome := s.run(ctx, onMessage, policy)
	s.sup.fire(ctx, EventTerminate)
	s.sup.cfg.Metrics.LoopOutcome.WithLabelValues(string(outcome)).Set(1)
	log.Info("Update loop finished", "outcome", outcome, "elapsed", s.sup.cfg.Clock.Since(s.startTime))
	return outcome
}

func (s *Session) run(ctx context.Context, onMessage MessageFunc, policy LoopPolicy) Outcome {
	clk := s.sup.cfg.Clock
	m := s.sup.cfg.Metrics
	handlerCtx := context.WithoutCancel(ctx)

	s.startTime = clk.Now()
	s.consecutiveErrors = 0
	nextMemoryReport := s.startTime.Add(policy.MemoryReportInterval)

	for {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		if clk.Since(s.startTime) >= policy.MaxWait {
			log.Warn("Timed out waiting for an update command", "maxWait", policy.MaxWait)
			return OutcomeTimedOut
		}

		s.sup.fire(ctx, EventPoll)
		s.sup.feed()
		m.LoopIterations.Inc()

		payload, ok, err := s.poll(ctx)
		if err != nil {
			s.consecutiveErrors++
			m.PollErrors.Inc()
			s.sup.fire(ctx, EventPollFailed)
			log.Warn("Message check failed", "attempt", s.consecutiveErrors,
				"max", policy.MaxConsecutiveErrors, "error", err)

			if s.consecutiveErrors >= policy.MaxConsecutiveErrors {
				log.Error(err, "Too many consecutive message check failures")
				return OutcomeCircuitBroken
			}
			clk.Sleep(policy.Backoff(s.consecutiveErrors))
			continue
		}
		s.consecutiveErrors = 0

		if ok {
			onMessage(handlerCtx, payload)
		}

		if policy.MemoryReportInterval > 0 && !clk.Now().Before(nextMemoryReport) {
			reportMemory()
			nextMemoryReport = clk.Now().Add(policy.MemoryReportInterval)
		}

		if s.completion.Done() {
			log.Info("Update process complete or skipped")
			return OutcomeCompleted
		}

		clk.Sleep(policy.PollInterval)
	}
}

// pollInbox drains queued commands first; with nothing queued a lost broker
// connection counts as a failed check.
func (s *Session) pollInbox(context.Context) ([]byte, bool, error) {
	if payload, ok := s.inbox.TryReceive(); ok {
		return payload, true, nil
	}
	if !s.sup.cfg.Client.IsConnected() {
		return nil, false, fmt.Errorf("%w: broker connection lost", core.ErrTransientPoll)
	}
	return nil, false, nil
}

// Close tears the broker session down. Errors are logged and swallowed. The
// WiFi association is left in place for the rest of the boot sequence.
func (s *Session) Close(ctx context.Context) {
	s.sup.disconnectBroker(ctx)
	s.sup.fire(ctx, EventTerminate)
	log.Info("Broker session closed")
}

func reportMemory() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	log.Debug("Memory report", "heapAlloc", ms.HeapAlloc, "heapSys", ms.HeapSys, "numGC", ms.NumGC)
}
