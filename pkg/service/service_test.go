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
	"fmt"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/config"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/detector"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
)

type fakePublisher struct {
	scores []float64
}

func (p *fakePublisher) SendPrediction(score float64) {
	p.scores = append(p.scores, score)
}

type exportedEvent struct {
	score     float64
	timestamp string
	features  []float64
}

type fakeExporter struct {
	events []exportedEvent
}

func (e *fakeExporter) Export(score float64, timestamp string, features []float64) {
	e.events = append(e.events, exportedEvent{score: score, timestamp: timestamp, features: features})
}

func sensorPayload(rng *rand.Rand, seq int) config.GenericMap {
	return config.GenericMap{
		"timestamp":   fmt.Sprintf("2024-06-01T00:00:%02dZ", seq%60),
		"orientation": map[string]interface{}{"w": 1.0},
		"raw_acceleration": map[string]interface{}{
			"x": rng.NormFloat64() * 0.1,
			"y": rng.NormFloat64() * 0.1,
			"z": 9.81 + rng.NormFloat64()*0.05,
		},
		"raw_gyroscope": map[string]interface{}{
			"x": rng.NormFloat64() * 0.01,
			"y": rng.NormFloat64() * 0.01,
			"z": rng.NormFloat64() * 0.01,
		},
		"euler_degrees": []interface{}{rng.NormFloat64(), rng.NormFloat64(), 90.0},
		"velocity":      map[string]interface{}{"x": 1.0, "y": 0.0, "z": 0.0},
		"gps_speed":     3.6 + rng.NormFloat64()*0.1,
		"gps_heading":   90.0,
	}
}

func outlierPayload() config.GenericMap {
	return config.GenericMap{
		"timestamp":   "2024-06-01T00:01:00Z",
		"orientation": map[string]interface{}{"w": 1.0},
		"raw_acceleration": map[string]interface{}{
			"x": 500.0, "y": -500.0, "z": 500.0,
		},
		"raw_gyroscope": map[string]interface{}{
			"x": 100.0, "y": 100.0, "z": 100.0,
		},
		"euler_degrees": []interface{}{720.0, 720.0, 720.0},
		"velocity":      map[string]interface{}{"x": 300.0, "y": 300.0, "z": 300.0},
		"gps_speed":     900.0,
		"gps_heading":   90.0,
	}
}

func newTestLoop(cfg api.Detector) (*ServiceLoop, *detector.AnomalyEngine, *fakePublisher, *fakeExporter) {
	opMetrics := operational.NewMetrics(prometheus.NewRegistry())
	engine := detector.NewAnomalyEngine(cfg, opMetrics)
	publisher := &fakePublisher{}
	exporter := &fakeExporter{}
	loop := NewServiceLoop(engine, publisher, exporter, cfg, opMetrics)
	return loop, engine, publisher, exporter
}

func TestServiceLoop_PublishesEveryScore(t *testing.T) {
	loop, _, publisher, _ := newTestLoop(api.Detector{})

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		loop.HandleSensorData(sensorPayload(rng, i))
	}

	require.EqualValues(t, 10, loop.SamplesProcessed())
	require.Len(t, publisher.scores, 10)
	for _, s := range publisher.scores {
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
	}
}

func TestServiceLoop_ExportsAnomalies(t *testing.T) {
	loop, engine, publisher, exporter := newTestLoop(api.Detector{BufferCapacity: 30})

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 30; i++ {
		loop.HandleSensorData(sensorPayload(rng, i))
	}
	require.True(t, engine.Trained())

	warmupEvents := len(exporter.events)
	loop.HandleSensorData(outlierPayload())

	require.Len(t, exporter.events, warmupEvents+1)
	event := exporter.events[len(exporter.events)-1]
	require.Greater(t, event.score, engine.Threshold())
	require.Equal(t, "2024-06-01T00:01:00Z", event.timestamp)
	require.Len(t, event.features, FeatureCount)
	require.Equal(t, event.score, publisher.scores[len(publisher.scores)-1])
}

func TestServiceLoop_RetrainsOnInterval(t *testing.T) {
	loop, engine, _, _ := newTestLoop(api.Detector{
		BufferCapacity:      200,
		ModelUpdateInterval: 10,
	})

	rng := rand.New(rand.NewSource(3))
	// the retrain at sample 10 is skipped for lack of data
	for i := 0; i < 19; i++ {
		loop.HandleSensorData(sensorPayload(rng, i))
	}
	require.False(t, engine.Trained())

	// the retrain at sample 20 has enough buffered samples
	loop.HandleSensorData(sensorPayload(rng, 19))
	require.True(t, engine.Trained())
}

func TestServiceLoop_NilExporter(t *testing.T) {
	opMetrics := operational.NewMetrics(prometheus.NewRegistry())
	cfg := api.Detector{BufferCapacity: 30}
	engine := detector.NewAnomalyEngine(cfg, opMetrics)
	publisher := &fakePublisher{}
	loop := NewServiceLoop(engine, publisher, nil, cfg, opMetrics)

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 30; i++ {
		loop.HandleSensorData(sensorPayload(rng, i))
	}
	// anomalies are still scored and published without an exporter
	loop.HandleSensorData(outlierPayload())
	require.Len(t, publisher.scores, 31)
	require.Greater(t, publisher.scores[30], engine.Threshold())
}
