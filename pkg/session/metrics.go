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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
)

var (
	framesReceivedDef = operational.DefineMetric(
		"session_frames_received_total",
		"Counter of inbound frames, including frames that failed to decode",
		operational.TypeCounter,
	)
	framesSentDef = operational.DefineMetric(
		"session_frames_sent_total",
		"Counter of outbound frames successfully written",
		operational.TypeCounter,
	)
	decodeErrorsDef = operational.DefineMetric(
		"session_decode_errors_total",
		"Counter of inbound frames dropped because they could not be decoded",
		operational.TypeCounter,
	)
	reconnectsDef = operational.DefineMetric(
		"session_reconnects_total",
		"Counter of reconnection attempts",
		operational.TypeCounter,
	)
)

type metricsType struct {
	framesReceived prometheus.Counter
	framesSent     prometheus.Counter
	decodeErrors   prometheus.Counter
	reconnects     prometheus.Counter
}

func newMetrics(opMetrics *operational.Metrics) *metricsType {
	return &metricsType{
		framesReceived: opMetrics.NewCounter(&framesReceivedDef),
		framesSent:     opMetrics.NewCounter(&framesSentDef),
		decodeErrors:   opMetrics.NewCounter(&decodeErrorsDef),
		reconnects:     opMetrics.NewCounter(&reconnectsDef),
	}
}
