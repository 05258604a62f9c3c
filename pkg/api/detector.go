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

// Detector describes configuration for the online anomaly detector.
type Detector struct {
	BufferCapacity      int     `yaml:"bufferCapacity,omitempty" json:"bufferCapacity,omitempty" doc:"number of recent samples kept for model training (default 50)"`
	AnomalyThreshold    float64 `yaml:"anomalyThreshold,omitempty" json:"anomalyThreshold,omitempty" doc:"score above which a sample is flagged as anomalous, in [0,1] (default 0.7)"`
	EnsembleSize        int     `yaml:"ensembleSize,omitempty" json:"ensembleSize,omitempty" doc:"number of isolation trees in the ensemble (default 100)"`
	SampleSize          int     `yaml:"sampleSize,omitempty" json:"sampleSize,omitempty" doc:"subsample size per tree; 0 uses the full training snapshot"`
	Contamination       float64 `yaml:"contamination,omitempty" json:"contamination,omitempty" doc:"expected share of anomalous training samples; negative disables decision offset calibration (default 0.1)"`
	ModelUpdateInterval int     `yaml:"modelUpdateInterval,omitempty" json:"modelUpdateInterval,omitempty" doc:"number of processed samples between explicit retrains (default 100)"`
	ScoreHistorySize    int     `yaml:"scoreHistorySize,omitempty" json:"scoreHistorySize,omitempty" doc:"number of recent scores kept for statistics (default 100)"`
	Seed                int64   `yaml:"seed,omitempty" json:"seed,omitempty" doc:"random seed for the ensemble (default 42)"`
}
