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

package service

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/config"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/detector"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/utils"
)

const (
	defaultModelUpdateInterval = 100
	progressLogInterval        = 50
)

var flog = logrus.WithField("component", "service.Loop")

var (
	samplesProcessedDef = operational.DefineMetric(
		"service_samples_total",
		"Counter of sensor samples processed by the service loop",
		operational.TypeCounter,
	)
	anomalyNotificationsDef = operational.DefineMetric(
		"service_anomaly_notifications_total",
		"Counter of anomaly notifications emitted for above-threshold scores",
		operational.TypeCounter,
	)
)

// Publisher publishes prediction scores back to the backend.
type Publisher interface {
	SendPrediction(score float64)
}

// Exporter receives above-threshold anomaly events for out-of-band delivery.
type Exporter interface {
	Export(score float64, timestamp string, features []float64)
}

// ServiceLoop feeds decoded sensor payloads into the anomaly engine and
// publishes the resulting scores. It also drives the periodic explicit
// retrain that keeps the model current as the stream drifts.
type ServiceLoop struct {
	engine         *detector.AnomalyEngine
	publisher      Publisher
	exporter       Exporter
	updateInterval uint64
	samples        atomic.Uint64

	samplesMetric   prometheus.Counter
	anomaliesMetric prometheus.Counter
}

// NewServiceLoop wires the engine to a publisher. The exporter may be nil.
func NewServiceLoop(engine *detector.AnomalyEngine, publisher Publisher, exporter Exporter, cfg api.Detector, opMetrics *operational.Metrics) *ServiceLoop {
	interval := cfg.ModelUpdateInterval
	if interval <= 0 {
		interval = defaultModelUpdateInterval
	}
	return &ServiceLoop{
		engine:          engine,
		publisher:       publisher,
		exporter:        exporter,
		updateInterval:  uint64(interval),
		samplesMetric:   opMetrics.NewCounter(&samplesProcessedDef),
		anomaliesMetric: opMetrics.NewCounter(&anomalyNotificationsDef),
	}
}

// HandleSensorData processes one sensor payload: extract features, score,
// notify on anomalies, retrain periodically and publish the score. Intended
// to be registered as the session's inbound handler.
func (l *ServiceLoop) HandleSensorData(payload config.GenericMap) {
	n := l.samples.Add(1)
	l.samplesMetric.Inc()

	features := ExtractFeatures(payload)
	score := l.engine.Predict(features)

	if score > l.engine.Threshold() {
		timestamp := utils.ConvertToString(payload["timestamp"])
		flog.Warningf("anomaly detected, score %.3f at %s", score, timestamp)
		l.anomaliesMetric.Inc()
		if l.exporter != nil {
			l.exporter.Export(score, timestamp, features)
		}
	}

	if n%l.updateInterval == 0 {
		flog.Infof("updating model after %d samples", n)
		l.engine.UpdateModel()
	}

	l.publisher.SendPrediction(score)

	if n%progressLogInterval == 0 {
		flog.Infof("processed %d samples, latest score: %.3f", n, score)
	}
}

// SamplesProcessed returns the number of payloads handled so far.
func (l *ServiceLoop) SamplesProcessed() uint64 {
	return l.samples.Load()
}
