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

package exporter

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
)

type fakeKafkaWriter struct {
	messages []kafkago.Message
	err      error
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestNewKafkaExporter(t *testing.T) {
	require.Nil(t, NewKafkaExporter(api.ExporterKafka{}))

	e := NewKafkaExporter(api.ExporterKafka{Address: "kafka:9092"})
	require.NotNil(t, e)
	writer := e.writer.(*kafkago.Writer)
	require.Equal(t, defaultTopic, writer.Topic)
}

func TestKafkaExporter_Export(t *testing.T) {
	fake := &fakeKafkaWriter{}
	e := &KafkaExporter{writer: fake}

	e.Export(0.93, "2024-06-01T00:00:00Z", []float64{1, 2, 3})

	require.Len(t, fake.messages, 1)
	var event anomalyEvent
	require.NoError(t, jsonCodec.Unmarshal(fake.messages[0].Value, &event))
	require.Equal(t, "anomaly_event", event.Type)
	require.InDelta(t, 0.93, event.Score, 1e-12)
	require.Equal(t, "2024-06-01T00:00:00Z", event.Timestamp)
	require.Equal(t, []float64{1, 2, 3}, event.Features)
}

func TestKafkaExporter_WriteErrorIsSwallowed(t *testing.T) {
	fake := &fakeKafkaWriter{err: errors.New("broker unavailable")}
	e := &KafkaExporter{writer: fake}

	// best-effort delivery: failures must not panic or propagate
	e.Export(0.8, "2024-06-01T00:00:00Z", nil)
	require.Empty(t, fake.messages)
}
