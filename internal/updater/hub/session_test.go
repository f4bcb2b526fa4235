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
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/floor-inspector/internal/updater/core"
)

func testPolicy() LoopPolicy {
	p := DefaultLoopPolicy()
	p.MaxWait = 60 * time.Second
	p.MaxConsecutiveErrors = 3
	p.MemoryReportInterval = 0
	return p
}

func noMessage(context.Context, []byte) {}

func TestLoopPolicyBackoff(t *testing.T) {
	p := DefaultLoopPolicy()
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 0},
		{1, 500 * time.Millisecond},
		{4, 2 * time.Second},
		{10, 5 * time.Second},
		{1000, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.n), "n=%d", tt.n)
	}
}

func TestLoopPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultLoopPolicy().Validate())

	p := DefaultLoopPolicy()
	p.BackoffCap = 10 * time.Second
	assert.Error(t, p.Validate(), "backoff above the watchdog timeout starves it")

	p = DefaultLoopPolicy()
	p.MaxConsecutiveErrors = 0
	assert.Error(t, p.Validate())
}

func TestRunSupervisedCircuitBreaker(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(env.sup)

	polls := 0
	s.poll = func(context.Context) ([]byte, bool, error) {
		polls++
		return nil, false, core.ErrTransientPoll
	}

	start := env.clock.Now()
	outcome := s.RunSupervised(context.Background(), noMessage, testPolicy())

	assert.Equal(t, OutcomeCircuitBroken, outcome)
	assert.Equal(t, 3, polls)
	assert.Equal(t, 3, env.watchdog.feeds, "one feed per iteration")
	// Backoff of 500ms then 1s; the third failure trips before sleeping.
	assert.Equal(t, 1500*time.Millisecond, env.clock.Since(start))
	assert.Less(t, env.clock.Since(start), testPolicy().MaxWait)
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.PollErrors))
	assert.Equal(t, StateTerminated, env.sup.Current())
}

func TestRunSupervisedTimesOut(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(env.sup)

	polls := 0
	s.poll = func(context.Context) ([]byte, bool, error) {
		polls++
		return nil, false, nil
	}

	policy := testPolicy()
	policy.MaxWait = 10 * time.Second

	start := env.clock.Now()
	outcome := s.RunSupervised(context.Background(), noMessage, policy)

	assert.Equal(t, OutcomeTimedOut, outcome)
	elapsed := env.clock.Since(start)
	assert.GreaterOrEqual(t, elapsed, policy.MaxWait)
	assert.LessOrEqual(t, elapsed, policy.MaxWait+policy.PollInterval)
	assert.Equal(t, polls, env.watchdog.feeds)
	assert.Equal(t, 100, polls)
}

func TestRunSupervisedErrorCounterResets(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(env.sup)

	// Two failures, one success, repeated: never three in a row.
	n := 0
	s.poll = func(context.Context) ([]byte, bool, error) {
		n++
		if n%3 == 0 {
			return nil, false, nil
		}
		return nil, false, errors.New("socket reset")
	}

	outcome := s.RunSupervised(context.Background(), noMessage, testPolicy())
	assert.Equal(t, OutcomeTimedOut, outcome)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.WatchdogOverruns))
}

func TestRunSupervisedCompletes(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(env.sup)

	queue := [][]byte{nil, nil, []byte(`{"updateAvailable":false}`)}
	s.poll = func(context.Context) ([]byte, bool, error) {
		if len(queue) == 0 {
			return nil, false, nil
		}
		next := queue[0]
		queue = queue[1:]
		return next, next != nil, nil
	}

	var got [][]byte
	outcome := s.RunSupervised(context.Background(), func(_ context.Context, payload []byte) {
		got = append(got, payload)
		s.Completion().Signal()
	}, testPolicy())

	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, [][]byte{[]byte(`{"updateAvailable":false}`)}, got)
	assert.Equal(t, 3, env.watchdog.feeds)
}

func TestRunSupervisedCancelled(t *testing.T) {
	env := newTestEnv(t)
	s := newSession(env.sup)

	ctx, cancel := context.WithCancel(context.Background())
	s.poll = func(context.Context) ([]byte, bool, error) {
		cancel()
		return []byte("{}"), true, nil
	}

	var handlerCtxErr error
	outcome := s.RunSupervised(ctx, func(hctx context.Context, _ []byte) {
		handlerCtxErr = hctx.Err()
	}, testPolicy())

	assert.Equal(t, OutcomeCancelled, outcome)
	assert.NoError(t, handlerCtxErr, "a dispatched command is never cancelled")
	assert.Equal(t, 1, env.watchdog.feeds)
}

func TestPollInbox(t *testing.T) {
	env := newTestEnv(t)
	env.client.connected = true
	s := newSession(env.sup)

	_, ok, err := s.pollInbox(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	handler := s.inbox.Handler()
	handler(context.Background(), "t", []byte("one"))
	handler(context.Background(), "t", []byte("two"))
	handler(context.Background(), "t", []byte("three"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.MessagesDropped))

	env.client.connected = false
	payload, ok, err := s.pollInbox(context.Background())
	require.NoError(t, err, "queued messages are delivered even after a disconnect")
	assert.True(t, ok)
	assert.Equal(t, "one", string(payload))

	_, _, err = s.pollInbox(context.Background())
	require.NoError(t, err)

	_, _, err = s.pollInbox(context.Background())
	assert.ErrorIs(t, err, core.ErrTransientPoll)
}
