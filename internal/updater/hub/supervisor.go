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
	"slices"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/floor-inspector/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/floor-inspector/internal/pkg/util/fsm"
	"github.com/autopeer-io/floor-inspector/internal/updater/core"
	"github.com/autopeer-io/floor-inspector/pkg/log"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt"
	"github.com/autopeer-io/floor-inspector/pkg/mqtt/topic"
)

// Supervisor states.
const (
	StateDisconnected     = "disconnected"
	StateWifiConnecting   = "wifi_connecting"
	StateWifiConnected    = "wifi_connected"
	StateBrokerConnecting = "broker_connecting"
	StateReady            = "ready"
	StatePolling          = "polling"
	StateBackoff          = "backoff"
	StateTerminated       = "terminated"
)

const (
	EventConnectWifi   = "event_connect_wifi"
	EventWifiUp        = "event_wifi_up"
	EventConnectBroker = "event_connect_broker"
	EventBrokerUp      = "event_broker_up"
	EventPoll          = "event_poll"
	EventPollFailed    = "event_poll_failed"
	EventTerminate     = "event_terminate"
)

// Credential is one known wireless network.
type Credential struct {
	SSID     string
	Password string
}

// WifiPolicy bounds the association phase.
type WifiPolicy struct {
	// ConnectTimeout is the wait per candidate network.
	ConnectTimeout time.Duration
	// PollInterval paces association checks; the watchdog is fed at this rate.
	PollInterval time.Duration
	Passes       int
	PassDelay    time.Duration
}

func DefaultWifiPolicy() WifiPolicy {
	return WifiPolicy{
		ConnectTimeout: 30 * time.Second,
		PollInterval:   100 * time.Millisecond,
		Passes:         3,
		PassDelay:      500 * time.Millisecond,
	}
}

type SupervisorConfig struct {
	IMEI string

	Network     core.Network
	Credentials []Credential
	Wifi        WifiPolicy

	// Client must carry the OFFLINE last will; see OfflinePayload.
	Client         mqtt.Client
	Topics         *topic.TopicBuilder
	ConnectTimeout time.Duration
	InboxSize      int

	Watchdog core.Watchdog
	Budget   Budget
	Clock    clock.Clock
	Metrics  *metrics.Metrics
}

// Supervisor walks the device from no connectivity to a broker session:
// DISCONNECTED -> WIFI_CONNECTING -> WIFI_CONNECTED -> BROKER_CONNECTING -> READY.
// The Session it returns continues on the same state machine.
type Supervisor struct {
	cfg SupervisorConfig
	fsm *fsm.FSM

	lastFeed time.Time
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	s := &Supervisor{cfg: cfg}

	events := fsm.Events{
		{Name: EventConnectWifi, Src: []string{StateDisconnected}, Dst: StateWifiConnecting},
		{Name: EventWifiUp, Src: []string{StateWifiConnecting}, Dst: StateWifiConnected},
		{Name: EventConnectBroker, Src: []string{StateWifiConnected}, Dst: StateBrokerConnecting},
		{Name: EventBrokerUp, Src: []string{StateBrokerConnecting}, Dst: StateReady},
		{Name: EventPoll, Src: []string{StateReady, StateBackoff, StatePolling}, Dst: StatePolling},
		{Name: EventPollFailed, Src: []string{StatePolling, StateBackoff}, Dst: StateBackoff},
		{Name: EventTerminate, Src: []string{
			StateDisconnected, StateWifiConnecting, StateWifiConnected,
			StateBrokerConnecting, StateReady, StatePolling, StateBackoff, StateTerminated,
		}, Dst: StateTerminated},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			log.Debug("Supervisor transition", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	}

	s.fsm = fsm.NewFSM(StateDisconnected, events, callbacks)
	return s
}

// Current returns the supervisor state.
func (s *Supervisor) Current() string {
	return s.fsm.Current()
}

// Connect associates with the first reachable known network and opens the
// broker session. Failures wrap core.ErrWifiConnect or core.ErrBrokerConnect
// and leave the supervisor TERMINATED.
func (s *Supervisor) Connect(ctx context.Context) (*Session, error) {
	s.fire(ctx, EventConnectWifi)
	if err := s.connectWifi(ctx); err != nil {
		s.fire(ctx, EventTerminate)
		return nil, err
	}
	s.fire(ctx, EventWifiUp)

	s.fire(ctx, EventConnectBroker)
	s.feed()
	if err := s.connectBroker(ctx); err != nil {
		s.fire(ctx, EventTerminate)
		return nil, err
	}
	s.cfg.Metrics.BrokerConnected.Set(1)
	s.fire(ctx, EventBrokerUp)

	session := newSession(s)
	if err := session.open(ctx); err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("%w: %v", core.ErrBrokerConnect, err)
	}
	return session, nil
}

func (s *Supervisor) connectWifi(ctx context.Context) error {
	if s.isConnected(ctx) {
		log.Info("WiFi already associated, skipping scan")
		s.logLink(ctx)
		return nil
	}

	pause := wait.Backoff{Duration: s.cfg.Wifi.PassDelay, Factor: 1.0, Steps: s.cfg.Wifi.Passes}
	for pass := 1; pass <= s.cfg.Wifi.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrWifiConnect, err)
		}
		log.Info("WiFi attempt", "pass", pass, "passes", s.cfg.Wifi.Passes)

		s.feed()
		visible, err := s.scan(ctx)
		if err != nil {
			log.Error(err, "WiFi scan failed", "pass", pass)
		}
		for _, cred := range s.cfg.Credentials {
			if !slices.Contains(visible, cred.SSID) {
				continue
			}
			if s.tryNetwork(ctx, cred) {
				return nil
			}
		}

		delay := pause.Step()
		if pass < s.cfg.Wifi.Passes {
			s.feed()
			s.cfg.Clock.Sleep(delay)
		}
	}
	return fmt.Errorf("%w: no known network reachable after %d passes", core.ErrWifiConnect, s.cfg.Wifi.Passes)
}

func (s *Supervisor) scan(ctx context.Context) ([]string, error) {
	ctx, cancel := s.cfg.Budget.WithDeadline(ctx)
	defer cancel()
	return s.cfg.Network.Scan(ctx)
}

// tryNetwork requests association with cred and waits up to the per-network
// timeout, feeding the watchdog on every check.
func (s *Supervisor) tryNetwork(ctx context.Context, cred Credential) bool {
	log.Info("Connecting to WiFi", "ssid", cred.SSID)

	callCtx, cancel := s.cfg.Budget.WithDeadline(ctx)
	err := s.cfg.Network.Connect(callCtx, cred.SSID, cred.Password)
	cancel()
	if err != nil {
		s.cfg.Metrics.WifiAttempts.WithLabelValues("error").Inc()
		log.Error(err, "WiFi association request failed", "ssid", cred.SSID)
		return false
	}

	deadline := s.cfg.Clock.Now().Add(s.cfg.Wifi.ConnectTimeout)
	for {
		s.feed()
		if s.isConnected(ctx) {
			s.cfg.Metrics.WifiAttempts.WithLabelValues("connected").Inc()
			s.logLink(ctx)
			return true
		}
		if !s.cfg.Clock.Now().Before(deadline) || ctx.Err() != nil {
			s.cfg.Metrics.WifiAttempts.WithLabelValues("timeout").Inc()
			log.Warn("WiFi association timed out", "ssid", cred.SSID, "timeout", s.cfg.Wifi.ConnectTimeout)
			return false
		}
		s.cfg.Clock.Sleep(s.cfg.Wifi.PollInterval)
	}
}

func (s *Supervisor) isConnected(ctx context.Context) bool {
	ctx, cancel := s.cfg.Budget.WithDeadline(ctx)
	defer cancel()
	ok, err := s.cfg.Network.IsConnected(ctx)
	if err != nil {
		log.Debug("WiFi state query failed", "error", err)
		return false
	}
	return ok
}

func (s *Supervisor) logLink(ctx context.Context) {
	reporter, ok := s.cfg.Network.(core.LinkReporter)
	if !ok {
		log.Info("WiFi connected")
		return
	}
	ctx, cancel := s.cfg.Budget.WithDeadline(ctx)
	defer cancel()
	link, err := reporter.ActiveLink(ctx)
	if err != nil {
		log.Info("WiFi connected", "linkError", err)
		return
	}
	log.Info("WiFi connected", "ssid", link.SSID, "strength", link.Strength)
}

// connectBroker makes a single connection attempt. The client keeps
// reconnecting in the background once the first attempt succeeded.
func (s *Supervisor) connectBroker(ctx context.Context) error {
	if err := s.cfg.Client.Start(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrBrokerConnect, err)
	}

	awaitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := s.cfg.Client.AwaitConnection(awaitCtx); err != nil {
		s.disconnectBroker(ctx)
		return fmt.Errorf("%w: %v", core.ErrBrokerConnect, err)
	}

	log.Info("Connected to MQTT broker", "imei", s.cfg.IMEI)
	return nil
}

func (s *Supervisor) disconnectBroker(ctx context.Context) {
	ctx, cancel := s.cfg.Budget.WithDeadline(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.cfg.Client.Disconnect(ctx); err != nil {
		log.Debug("Broker disconnect failed", "error", err)
	}
	s.cfg.Metrics.BrokerConnected.Set(0)
}

// feed kicks the watchdog and records feed-to-feed gaps that would have
// reset the device.
func (s *Supervisor) feed() {
	now := s.cfg.Clock.Now()
	if !s.lastFeed.IsZero() {
		if gap := now.Sub(s.lastFeed); s.cfg.Budget.Overran(gap) {
			s.cfg.Metrics.WatchdogOverruns.Inc()
			log.Warn("Watchdog feed gap exceeded the timeout", "gap", gap)
		}
	}
	s.lastFeed = now

	if err := s.cfg.Watchdog.Feed(); err != nil {
		log.Error(err, "Watchdog feed failed")
	}
	s.cfg.Metrics.WatchdogFeeds.Inc()
}

// fire applies event. Transitions are bookkeeping and must happen even
// while the process is shutting down.
func (s *Supervisor) fire(ctx context.Context, event string) {
	if err := s.fsm.Event(context.WithoutCancel(ctx), event); fsmutil.IsRealError(err) {
		log.Warn("Unexpected supervisor transition", "event", event, "state", s.fsm.Current(), "error", err)
	}
}

// Presence is the payload of the connect topic.
type Presence struct {
	IMEI      string `json:"imei"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// OfflinePayload is the last will. It carries no timestamp: the broker may
// deliver it long after it was registered.
func OfflinePayload(imei string) []byte {
	payload, _ := json.Marshal(Presence{IMEI: imei, Status: core.PresenceOffline})
	return payload
}

// CheckRequest announces the installed version.
type CheckRequest struct {
	IMEI           string `json:"imei"`
	CurrentVersion string `json:"currentVersion"`
	CurrentModel   string `json:"currentModel"`
}
