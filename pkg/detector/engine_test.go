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

package detector

import (
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
)

func newTestEngine(cfg api.Detector) *AnomalyEngine {
	return NewAnomalyEngine(cfg, operational.NewMetrics(prometheus.NewRegistry()))
}

func TestEngine_ColdStartUsesStatisticalScoring(t *testing.T) {
	e := newTestEngine(api.Detector{})

	data := clusteredData(10, 3, 21)
	var seen [][]float64
	for _, v := range data {
		want := StatisticalScore(v, seen)
		got := e.Predict(v)
		require.InDelta(t, want, got, 1e-12)
		seen = append(seen, v)
	}

	require.False(t, e.Trained())
	stats := e.Statistics()
	require.EqualValues(t, 10, stats.Predictions)
	require.Equal(t, 10, stats.BufferOccupancy)
}

func TestEngine_RejectsMismatchedDimensions(t *testing.T) {
	e := newTestEngine(api.Detector{})

	require.Zero(t, e.Predict(nil))
	e.Predict([]float64{1, 2, 3})
	// dimension is now locked to 3
	require.Zero(t, e.Predict([]float64{1, 2}))

	stats := e.Statistics()
	require.EqualValues(t, 3, stats.Predictions)
	require.Equal(t, 1, stats.BufferOccupancy)
}

func TestEngine_TrainsWhenBufferFills(t *testing.T) {
	e := newTestEngine(api.Detector{BufferCapacity: 30})

	for _, v := range clusteredData(29, 2, 17) {
		e.Predict(v)
		require.False(t, e.Trained())
	}
	e.Predict([]float64{0.1, -0.1})
	require.True(t, e.Trained())

	// far outlier blends model and statistical evidence into a high score
	outlier := e.Predict([]float64{100, 100})
	require.Greater(t, outlier, e.Threshold())

	// a sample from the training distribution stays well below the threshold
	inlier := e.Predict([]float64{0.2, 0.3})
	require.Less(t, inlier, e.Threshold())

	stats := e.Statistics()
	require.EqualValues(t, 1, stats.Anomalies)
	require.Greater(t, stats.AnomalyRate, 0.0)
}

func TestEngine_ScoresStayInUnitInterval(t *testing.T) {
	e := newTestEngine(api.Detector{BufferCapacity: 25})

	probes := append(clusteredData(40, 4, 13), []float64{1e6, -1e6, 0, 42})
	for _, v := range probes {
		s := e.Predict(v)
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
	}
}

func TestEngine_UpdateModelNeedsEnoughSamples(t *testing.T) {
	e := newTestEngine(api.Detector{})

	for _, v := range clusteredData(MinTrainSamples-1, 2, 9) {
		e.Predict(v)
	}
	require.False(t, e.UpdateModel())
	require.False(t, e.Trained())

	e.Predict([]float64{0, 0})
	require.True(t, e.UpdateModel())
	require.True(t, e.Trained())
}

func TestEngine_NegativeContaminationDisablesOffset(t *testing.T) {
	data := clusteredData(30, 2, 19)
	probe := []float64{0.4, -0.2}

	e := newTestEngine(api.Detector{BufferCapacity: 30, Contamination: -1})
	for _, v := range data {
		e.Predict(v)
	}
	require.True(t, e.Trained())
	got := e.Predict(probe)

	// rebuild the model the engine trained at buffer-fill time, with the
	// fixed 0.5 offset that a disabled calibration implies
	scaler := FitScaler(data)
	scaled := make([][]float64, len(data))
	for i, row := range data {
		scaled[i] = scaler.Transform(row)
	}
	forest, err := FitForest(scaled, WithContamination(0), WithSeed(42))
	require.NoError(t, err)

	decision := forest.Decision(scaler.Transform(probe))
	normalized := 1.0 / (1.0 + math.Exp(-sigmoidSteepness*(-decision)))
	statistical := StatisticalScore(probe, data[1:])
	want := modelWeight*normalized + statWeight*statistical
	require.InDelta(t, want, got, 1e-12)
}

func TestEngine_ConcurrentPredictAndRetrain(t *testing.T) {
	e := newTestEngine(api.Detector{BufferCapacity: 40})
	data := clusteredData(500, 3, 29)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			e.UpdateModel()
		}
	}()

	// a prediction must never observe a half-swapped scaler/ensemble pair
	for _, v := range data {
		s := e.Predict(v)
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
	}
	wg.Wait()
}

func TestEngine_Reset(t *testing.T) {
	e := newTestEngine(api.Detector{BufferCapacity: 25})
	for _, v := range clusteredData(25, 2, 31) {
		e.Predict(v)
	}
	require.True(t, e.Trained())

	e.Reset()
	require.False(t, e.Trained())
	stats := e.Statistics()
	require.Zero(t, stats.Predictions)
	require.Zero(t, stats.Anomalies)
	require.Zero(t, stats.BufferOccupancy)
	require.Zero(t, stats.RecentAvgScore)

	// dimension lock is released as well
	require.Zero(t, e.Predict([]float64{1, 2, 3, 4}))
	require.Equal(t, 1, e.Statistics().BufferOccupancy)
}

func TestEngine_StatisticsSnapshot(t *testing.T) {
	e := newTestEngine(api.Detector{AnomalyThreshold: 0.9})

	stats := e.Statistics()
	require.False(t, stats.Trained)
	require.Zero(t, stats.AnomalyRate)
	require.InDelta(t, 0.9, stats.Threshold, 1e-12)

	for _, v := range clusteredData(8, 2, 23) {
		e.Predict(v)
	}
	stats = e.Statistics()
	require.EqualValues(t, 8, stats.Predictions)
	require.GreaterOrEqual(t, stats.RecentAvgScore, 0.0)
}
