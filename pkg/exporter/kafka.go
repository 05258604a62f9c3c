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
	"time"

	jsoniter "github.com/json-iterator/go"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
)

const (
	defaultTopic               = "sensor-anomalies"
	defaultWriteTimeoutSeconds = int64(10)
)

var klog = logrus.WithField("component", "exporter.Kafka")

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

type kafkaWriteMessage interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// anomalyEvent is the payload published for each above-threshold score.
type anomalyEvent struct {
	Type      string    `json:"type"`
	Score     float64   `json:"score"`
	Timestamp string    `json:"timestamp"`
	Features  []float64 `json:"features"`
}

// KafkaExporter publishes anomaly events to a kafka topic. Delivery is
// best-effort: write failures are logged and dropped.
type KafkaExporter struct {
	writer kafkaWriteMessage
}

// NewKafkaExporter creates an exporter for the configured kafka server, or
// nil when no address is configured.
func NewKafkaExporter(cfg api.ExporterKafka) *KafkaExporter {
	if cfg.Address == "" {
		return nil
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	writeTimeoutSecs := cfg.WriteTimeoutSeconds
	if writeTimeoutSecs == 0 {
		writeTimeoutSecs = defaultWriteTimeoutSeconds
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Address),
		Topic:        topic,
		Balancer:     &kafkago.RoundRobin{},
		WriteTimeout: time.Duration(writeTimeoutSecs) * time.Second,
		BatchSize:    cfg.BatchSize,
	}
	klog.Infof("kafka exporter initialized for %s, topic %s", cfg.Address, topic)
	return &KafkaExporter{writer: writer}
}

// Export publishes one anomaly event.
func (e *KafkaExporter) Export(score float64, timestamp string, features []float64) {
	event := anomalyEvent{
		Type:      "anomaly_event",
		Score:     score,
		Timestamp: timestamp,
		Features:  features,
	}
	data, err := jsonCodec.Marshal(&event)
	if err != nil {
		klog.Errorf("failed to encode anomaly event: %v", err)
		return
	}
	err = e.writer.WriteMessages(context.Background(), kafkago.Message{Value: data})
	if err != nil {
		klog.Errorf("kafka write error: %v", err)
	}
}
