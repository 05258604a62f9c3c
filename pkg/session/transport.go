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

// Transport opens duplex frame channels to the telemetry backend. The session
// only requires text frames carrying structured payloads; framing, TLS and
// keep-alive belong to the implementation.
type Transport interface {
	Dial(url string) (Conn, error)
}

// Conn is a single established duplex channel. ReadFrame blocks until a frame
// arrives, the channel closes, or an error occurs. Ownership of the
// connection transfers to the session on successful dial.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}
