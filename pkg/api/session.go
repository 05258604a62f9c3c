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

package api

// Session describes configuration for the websocket stream session.
type Session struct {
	URL                     string  `yaml:"url,omitempty" json:"url,omitempty" doc:"websocket endpoint of the telemetry backend (default ws://127.0.0.1:8080)"`
	ReconnectBackoffSeconds float64 `yaml:"reconnectBackoffSeconds,omitempty" json:"reconnectBackoffSeconds,omitempty" doc:"delay between reconnection attempts, in seconds (default 5)"`
	HeartbeatSeconds        float64 `yaml:"heartbeatSeconds,omitempty" json:"heartbeatSeconds,omitempty" doc:"interval between heartbeat messages while connected, in seconds; negative disables heartbeats (default 20)"`
	WriteTimeoutSeconds     float64 `yaml:"writeTimeoutSeconds,omitempty" json:"writeTimeoutSeconds,omitempty" doc:"timeout for outbound frame writes, in seconds (default 10)"`
}
