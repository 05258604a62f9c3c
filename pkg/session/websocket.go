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
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	wsReadBufferSize  = 64 * 1024
	wsWriteBufferSize = 64 * 1024
	wsReadLimit       = 16 * 1024 * 1024
	wsHandshakeWait   = 30 * time.Second
)

// WebsocketTransport implements Transport over gorilla/websocket text frames.
type WebsocketTransport struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

// NewWebsocketTransport builds a transport with the given write timeout for
// outbound frames.
func NewWebsocketTransport(writeTimeout time.Duration) *WebsocketTransport {
	return &WebsocketTransport{
		dialer: &websocket.Dialer{
			ReadBufferSize:   wsReadBufferSize,
			WriteBufferSize:  wsWriteBufferSize,
			HandshakeTimeout: wsHandshakeWait,
		},
		writeTimeout: writeTimeout,
	}
}

func (t *WebsocketTransport) Dial(url string) (Conn, error) {
	ws, resp, err := t.dialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, errors.Wrapf(err, "websocket dial %s (status %s)", url, resp.Status)
		}
		return nil, errors.Wrapf(err, "websocket dial %s", url)
	}
	ws.SetReadLimit(wsReadLimit)
	return &wsConn{ws: ws, writeTimeout: t.writeTimeout}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// ReadFrame returns the next text frame, skipping binary frames.
func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (c *wsConn) WriteFrame(data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
