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
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
)

const (
	defaultBufferCapacity   = 50
	defaultThreshold        = 0.7
	defaultScoreHistorySize = 100

	// modelWeight and statWeight blend the ensemble score with the statistical
	// score once the model is trained; the statistical score remains as a
	// robustness floor.
	modelWeight = 0.7
	statWeight  = 0.3

	// sigmoidSteepness controls the logistic transform mapping decision values
	// to [0,1].
	sigmoidSteepness = 10.0
)

var elog = logrus.WithField("component", "detector.Engine")

// model bundles a scaler and an ensemble fitted from the same snapshot. The
// engine swaps the whole pair atomically so a prediction never observes a
// scaler from one training round paired with an ensemble from another.
type model struct {
	scaler *FeatureScaler
	forest *IsolationForest
}

// AnomalyEngine scores incoming feature vectors against recently observed
// history. Below MinTrainSamples buffered samples it serves the statistical
// score only; once the buffer fills it trains the ensemble and blends both.
type AnomalyEngine struct {
	mu      sync.Mutex
	cfg     api.Detector
	buffer  *SampleBuffer
	dim     int
	current atomic.Pointer[model]

	predictions uint64
	anomalies   uint64
	history     []float64

	metrics *metricsType
}

// EngineStats is a point-in-time view of the engine counters.
type EngineStats struct {
	Trained         bool    `json:"is_trained"`
	Predictions     uint64  `json:"prediction_count"`
	Anomalies       uint64  `json:"anomaly_count"`
	AnomalyRate     float64 `json:"anomaly_rate"`
	BufferOccupancy int     `json:"buffer_size"`
	RecentAvgScore  float64 `json:"recent_avg_score"`
	Threshold       float64 `json:"threshold"`
}

// NewAnomalyEngine creates an engine with defaults resolved from cfg.
func NewAnomalyEngine(cfg api.Detector, opMetrics *operational.Metrics) *AnomalyEngine {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = defaultBufferCapacity
	}
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = defaultThreshold
	}
	if cfg.EnsembleSize <= 0 {
		cfg.EnsembleSize = defaultEnsembleSize
	}
	if cfg.Contamination == 0 {
		cfg.Contamination = defaultContamination
	} else if cfg.Contamination < 0 {
		// explicit opt-out of offset calibration, keeps the fixed 0.5 offset
		cfg.Contamination = 0
	}
	if cfg.ScoreHistorySize <= 0 {
		cfg.ScoreHistorySize = defaultScoreHistorySize
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	elog.Infof("anomaly engine initialized (buffer=%d, threshold=%v)", cfg.BufferCapacity, cfg.AnomalyThreshold)
	return &AnomalyEngine{
		cfg:     cfg,
		buffer:  NewSampleBuffer(cfg.BufferCapacity),
		metrics: newMetrics(opMetrics),
	}
}

// Predict buffers the vector and returns its anomaly score in [0,1]. Vectors
// whose length disagrees with the dimension locked in by the first accepted
// vector are rejected with a neutral score and do not touch the buffer.
func (e *AnomalyEngine) Predict(vector []float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.predictions++

	if len(vector) == 0 {
		elog.Warning("empty feature vector received")
		e.metrics.predictions.WithLabelValues("rejected").Inc()
		return 0
	}
	if e.dim == 0 {
		e.dim = len(vector)
		elog.Infof("feature dimension locked: %d", e.dim)
	} else if len(vector) != e.dim {
		elog.Warningf("feature dimension mismatch: expected %d, got %d", e.dim, len(vector))
		e.metrics.predictions.WithLabelValues("rejected").Inc()
		return 0
	}

	e.buffer.Append(vector)
	e.metrics.bufferOccupancy.Set(float64(e.buffer.Len()))

	snapshot := e.buffer.Snapshot()
	history := snapshot[:len(snapshot)-1]

	if e.buffer.Len() < MinTrainSamples {
		score := StatisticalScore(vector, history)
		e.pushHistory(score)
		e.metrics.predictions.WithLabelValues("statistical").Inc()
		return score
	}

	if e.buffer.Full() && e.current.Load() == nil {
		e.updateModelLocked()
	}

	if m := e.current.Load(); m != nil {
		if score, ok := e.scoreWithModel(m, vector, history); ok {
			e.metrics.predictions.WithLabelValues("model").Inc()
			return score
		}
		// degraded model, fall back to statistics for this prediction
	}

	score := StatisticalScore(vector, history)
	e.pushHistory(score)
	e.metrics.predictions.WithLabelValues("statistical").Inc()
	return score
}

func (e *AnomalyEngine) scoreWithModel(m *model, vector []float64, history [][]float64) (float64, bool) {
	if m.scaler.Dim() != len(vector) {
		elog.Errorf("model dimension %d disagrees with vector dimension %d", m.scaler.Dim(), len(vector))
		return 0, false
	}

	scaled := m.scaler.Transform(vector)
	decision := m.forest.Decision(scaled)
	// steeper sigmoid centered at zero: negative decision means anomaly
	normalized := 1.0 / (1.0 + math.Exp(-sigmoidSteepness*(-decision)))
	statistical := StatisticalScore(vector, history)
	final := modelWeight*normalized + statWeight*statistical

	e.pushHistory(final)
	if final > e.cfg.AnomalyThreshold {
		e.anomalies++
		e.metrics.anomalies.Inc()
	}
	return final, true
}

// UpdateModel retrains the scaler and ensemble from the current buffer
// snapshot, swapping both in atomically on success. Returns false when
// training was skipped or failed; the previous model stays in place.
func (e *AnomalyEngine) UpdateModel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateModelLocked()
}

func (e *AnomalyEngine) updateModelLocked() bool {
	snapshot := e.buffer.Snapshot()
	if len(snapshot) < MinTrainSamples {
		elog.Warningf("insufficient data for training: %d samples", len(snapshot))
		e.metrics.retrains.WithLabelValues("skipped").Inc()
		return false
	}

	elog.Infof("training model with %d samples", len(snapshot))
	scaler := FitScaler(snapshot)
	scaled := make([][]float64, len(snapshot))
	for i, row := range snapshot {
		scaled[i] = scaler.Transform(row)
	}

	forest, err := FitForest(scaled,
		WithEnsembleSize(e.cfg.EnsembleSize),
		WithSubsampleSize(e.cfg.SampleSize),
		WithContamination(e.cfg.Contamination),
		WithSeed(e.cfg.Seed),
	)
	if err != nil {
		elog.Errorf("model training failed: %v", err)
		e.metrics.retrains.WithLabelValues("failed").Inc()
		return false
	}

	e.current.Store(&model{scaler: scaler, forest: forest})
	e.metrics.retrains.WithLabelValues("success").Inc()

	flagged := 0
	for _, row := range scaled {
		if forest.Decision(row) < 0 {
			flagged++
		}
	}
	elog.Infof("model training complete; training set anomaly ratio: %.2f%%",
		100*float64(flagged)/float64(len(scaled)))
	return true
}

// Trained reports whether an ensemble is currently in use.
func (e *AnomalyEngine) Trained() bool {
	return e.current.Load() != nil
}

// Threshold returns the configured anomaly threshold.
func (e *AnomalyEngine) Threshold() float64 {
	return e.cfg.AnomalyThreshold
}

// Reset returns the engine to its initial cold-start state: buffer, score
// history, counters, trained model and the locked feature dimension are all
// discarded.
func (e *AnomalyEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = NewSampleBuffer(e.cfg.BufferCapacity)
	e.current.Store(nil)
	e.dim = 0
	e.predictions = 0
	e.anomalies = 0
	e.history = nil
	e.metrics.bufferOccupancy.Set(0)
	elog.Info("anomaly engine reset")
}

// Statistics returns current engine counters without side effects.
func (e *AnomalyEngine) Statistics() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rate float64
	if e.predictions > 0 {
		rate = float64(e.anomalies) / float64(e.predictions)
	}
	var recentAvg float64
	if len(e.history) > 0 {
		var sum float64
		for _, s := range e.history {
			sum += s
		}
		recentAvg = sum / float64(len(e.history))
	}
	return EngineStats{
		Trained:         e.current.Load() != nil,
		Predictions:     e.predictions,
		Anomalies:       e.anomalies,
		AnomalyRate:     rate,
		BufferOccupancy: e.buffer.Len(),
		RecentAvgScore:  recentAvg,
		Threshold:       e.cfg.AnomalyThreshold,
	}
}

func (e *AnomalyEngine) pushHistory(score float64) {
	e.history = append(e.history, score)
	if len(e.history) > e.cfg.ScoreHistorySize {
		e.history = e.history[1:]
	}
}
