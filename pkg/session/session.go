/*
 * Copyright (C) 2024 SensorObs, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/heptiolabs/healthcheck"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/config"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/utils"
)

const (
	defaultURL       = "ws://127.0.0.1:8080"
	defaultBackoff   = 5 * time.Second
	defaultHeartbeat = 20 * time.Second

	receivedLogInterval = 100
	sentLogInterval     = 50
)

var slog = logrus.WithField("component", "session.Stream")

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// State is the connection state of a StreamSession.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	ReconnectWaiting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case ReconnectWaiting:
		return "ReconnectWaiting"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handler receives decoded sensor payloads in arrival order.
type Handler func(config.GenericMap)

// StreamSession maintains a persistent duplex channel to the telemetry
// backend, reconnecting with a fixed backoff until explicitly disconnected.
// Inbound frames are decoded and routed; outbound sends are fire-and-forget.
type StreamSession struct {
	url       string
	backoff   time.Duration
	heartbeat time.Duration
	transport Transport
	handler   Handler
	clock     clock.Clock

	mu    sync.Mutex
	state State
	conn  Conn

	sendMu sync.Mutex

	received   atomic.Uint64
	sent       atomic.Uint64
	reconnects atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once

	metrics *metricsType
}

// SessionStats is a point-in-time view of the session counters.
type SessionStats struct {
	Connected        bool   `json:"connected"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	ReconnectCount   uint64 `json:"reconnect_count"`
	URL              string `json:"url"`
}

type predictionMessage struct {
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	Timestamp string  `json:"timestamp"`
}

type commandMessage struct {
	Type       string                 `json:"type"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters"`
	Timestamp  string                 `json:"timestamp"`
}

type heartbeatMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewStreamSession creates a session with defaults resolved from cfg. A nil
// clk uses the wall clock.
func NewStreamSession(cfg api.Session, transport Transport, handler Handler, clk clock.Clock, opMetrics *operational.Metrics) *StreamSession {
	url := cfg.URL
	if url == "" {
		url = defaultURL
	}
	backoff := defaultBackoff
	if cfg.ReconnectBackoffSeconds > 0 {
		backoff = time.Duration(cfg.ReconnectBackoffSeconds * float64(time.Second))
	}
	heartbeat := defaultHeartbeat
	if cfg.HeartbeatSeconds > 0 {
		heartbeat = time.Duration(cfg.HeartbeatSeconds * float64(time.Second))
	} else if cfg.HeartbeatSeconds < 0 {
		heartbeat = 0
	}
	if clk == nil {
		clk = clock.New()
	}
	slog.Infof("stream session initialized for %s", url)
	return &StreamSession{
		url:       url,
		backoff:   backoff,
		heartbeat: heartbeat,
		transport: transport,
		handler:   handler,
		clock:     clk,
		state:     Disconnected,
		done:      make(chan struct{}),
		metrics:   newMetrics(opMetrics),
	}
}

// Run drives the connect/reconnect state machine until ctx is cancelled or
// Disconnect is called. All scoring work triggered by the handler runs on
// this goroutine, so samples are processed strictly in arrival order.
func (s *StreamSession) Run(ctx context.Context) {
	for {
		if s.shuttingDown(ctx) {
			s.markClosed()
			return
		}

		s.setState(Connecting)
		slog.Infof("connecting to %s", s.url)
		conn, err := s.transport.Dial(s.url)
		if err != nil {
			slog.Errorf("connection failed: %v", err)
			if !s.waitReconnect(ctx) {
				return
			}
			continue
		}

		// the backend sends a greeting frame before any data
		greeting, err := conn.ReadFrame()
		if err != nil {
			slog.Errorf("error reading greeting frame: %v", err)
			_ = conn.Close()
			if !s.waitReconnect(ctx) {
				return
			}
			continue
		}
		slog.Infof("connection established, greeting: %s", greeting)

		s.setConn(conn)
		s.setState(Connected)
		stopHeartbeat := s.startHeartbeat()
		stopWatcher := s.watchShutdown(ctx)

		s.readLoop(ctx, conn)

		stopWatcher()
		stopHeartbeat()
		s.dropConn()

		if s.shuttingDown(ctx) {
			s.markClosed()
			return
		}
		if !s.waitReconnect(ctx) {
			return
		}
	}
}

func (s *StreamSession) readLoop(ctx context.Context, conn Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if !s.shuttingDown(ctx) {
				slog.Warningf("connection closed: %v", err)
			}
			return
		}
		s.dispatch(frame)
	}
}

// watchShutdown closes the active connection when the context is cancelled or
// Disconnect is called, so a blocked read unblocks and Run can return.
func (s *StreamSession) watchShutdown(ctx context.Context) func() {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.dropConn()
		case <-s.done:
			s.dropConn()
		case <-stop:
		}
	}()
	return func() { close(stop) }
}

// dispatch decodes an inbound frame and routes it by content. Malformed
// frames are logged and skipped, never fatal.
func (s *StreamSession) dispatch(frame []byte) {
	n := s.received.Add(1)
	s.metrics.framesReceived.Inc()

	var payload config.GenericMap
	if err := jsonCodec.Unmarshal(frame, &payload); err != nil {
		slog.Errorf("frame decode error: %v | frame: %.100s", err, frame)
		s.metrics.decodeErrors.Inc()
		return
	}

	_, hasTimestamp := payload["timestamp"]
	_, hasOrientation := payload["orientation"]
	switch {
	case utils.ConvertToString(payload["type"]) == "connection":
		slog.Infof("connection status: %v", payload["status"])
	case hasTimestamp && hasOrientation:
		if s.handler != nil {
			s.handler(payload)
		}
	default:
		slog.Debugf("unrecognized message: %v", payload)
	}

	if n%receivedLogInterval == 0 {
		slog.Infof("received %d messages", n)
	}
}

// SendPrediction publishes an anomaly score. Fire-and-forget: a silent no-op
// when not connected.
func (s *StreamSession) SendPrediction(score float64) {
	if !s.trySend(predictionMessage{
		Type:      "anomaly_prediction",
		Score:     score,
		Timestamp: isoTimestamp(),
	}) {
		return
	}
	if n := s.sent.Load(); n%sentLogInterval == 0 {
		slog.Debugf("sent %d predictions", n)
	}
}

// SendCommand publishes a control command. Fire-and-forget.
func (s *StreamSession) SendCommand(action string, parameters map[string]interface{}) {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	if s.trySend(commandMessage{
		Type:       "command",
		Action:     action,
		Parameters: parameters,
		Timestamp:  isoTimestamp(),
	}) {
		slog.Infof("sent command: %s", action)
	}
}

// SendHeartbeat publishes a keep-alive message. Fire-and-forget.
func (s *StreamSession) SendHeartbeat() {
	s.trySend(heartbeatMessage{
		Type:      "heartbeat",
		Timestamp: isoTimestamp(),
	})
}

func (s *StreamSession) trySend(msg interface{}) bool {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	if state != Connected || conn == nil {
		slog.Debugf("not connected, dropping outbound message")
		return false
	}

	data, err := jsonCodec.Marshal(msg)
	if err != nil {
		slog.Errorf("failed to encode outbound message: %v", err)
		return false
	}
	s.sendMu.Lock()
	err = conn.WriteFrame(data)
	s.sendMu.Unlock()
	if err != nil {
		slog.Errorf("failed to send message: %v", err)
		return false
	}
	s.sent.Add(1)
	s.metrics.framesSent.Inc()
	return true
}

// Disconnect closes the session from any state. No further reconnection is
// attempted; an in-flight Run returns once its current read unblocks.
func (s *StreamSession) Disconnect() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.markClosed()
	stats := s.Stats()
	slog.Infof("session disconnected; final stats: %d received, %d sent, %d reconnects",
		stats.MessagesReceived, stats.MessagesSent, stats.ReconnectCount)
}

// State returns the current connection state.
func (s *StreamSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns current session counters.
func (s *StreamSession) Stats() SessionStats {
	return SessionStats{
		Connected:        s.State() == Connected,
		MessagesReceived: s.received.Load(),
		MessagesSent:     s.sent.Load(),
		ReconnectCount:   s.reconnects.Load(),
		URL:              s.url,
	}
}

// IsAlive reports session liveness: the session is alive until closed.
func (s *StreamSession) IsAlive() healthcheck.Check {
	return func() error {
		if s.State() == Closed {
			return fmt.Errorf("session is closed")
		}
		return nil
	}
}

// IsReady reports session readiness: the session is ready while connected.
func (s *StreamSession) IsReady() healthcheck.Check {
	return func() error {
		if st := s.State(); st != Connected {
			return fmt.Errorf("session is not connected (state %s)", st)
		}
		return nil
	}
}

// waitReconnect counts a reconnection attempt and sleeps for the configured
// backoff. Returns false when the session is shutting down.
func (s *StreamSession) waitReconnect(ctx context.Context) bool {
	timer := s.clock.Timer(s.backoff)
	defer timer.Stop()
	s.reconnects.Add(1)
	s.metrics.reconnects.Inc()
	s.setState(ReconnectWaiting)
	slog.Infof("attempting reconnection #%d in %v", s.reconnects.Load(), s.backoff)

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		s.markClosed()
		return false
	case <-s.done:
		s.markClosed()
		return false
	}
}

func (s *StreamSession) startHeartbeat() func() {
	if s.heartbeat <= 0 {
		return func() {}
	}
	stop := make(chan struct{})
	ticker := s.clock.Ticker(s.heartbeat)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SendHeartbeat()
			case <-stop:
				return
			case <-s.done:
				return
			}
		}
	}()
	return func() { close(stop) }
}

func (s *StreamSession) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.state = state
}

func (s *StreamSession) setConn(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *StreamSession) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *StreamSession) markClosed() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = Closed
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *StreamSession) shuttingDown(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.done:
		return true
	default:
		return false
	}
}

func isoTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
