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

import "math"

// stdFloor substitutes for a zero standard deviation so scaling never divides
// by zero.
const stdFloor = 1e-9

// FeatureScaler normalizes vectors to zero mean and unit variance per feature.
// A scaler is fitted once from a training snapshot and never updated in place.
type FeatureScaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-feature mean and standard deviation over the given
// snapshot. The snapshot must be non-empty and rectangular.
func FitScaler(data [][]float64) *FeatureScaler {
	n := float64(len(data))
	dim := len(data[0])
	mean := make([]float64, dim)
	std := make([]float64, dim)

	for _, row := range data {
		for f, v := range row {
			mean[f] += v
		}
	}
	for f := range mean {
		mean[f] /= n
	}
	for _, row := range data {
		for f, v := range row {
			d := v - mean[f]
			std[f] += d * d
		}
	}
	for f := range std {
		std[f] = math.Sqrt(std[f] / n)
		if std[f] < stdFloor {
			std[f] = stdFloor
		}
	}

	return &FeatureScaler{mean: mean, std: std}
}

// Transform returns the z-normalized copy of v.
func (s *FeatureScaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for f, x := range v {
		out[f] = (x - s.mean[f]) / s.std[f]
	}
	return out
}

// Dim returns the feature dimension the scaler was fitted on.
func (s *FeatureScaler) Dim() int {
	return len(s.mean)
}
