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

const (
	// minStatSamples is the history floor below which z-score statistics are
	// considered unreliable.
	minStatSamples = 5
	// stdEpsilon avoids division by zero on constant features.
	stdEpsilon = 1e-6
	// saturatingZScore is the z value treated as a certain anomaly.
	saturatingZScore = 3.0
)

// StatisticalScore returns a z-score based anomaly estimate in [0,1] for query
// against the given history. The history must exclude the query itself.
// Returns 0 when fewer than minStatSamples historical samples are available.
func StatisticalScore(query []float64, history [][]float64) float64 {
	if len(history) < minStatSamples || len(query) == 0 {
		return 0
	}

	maxZ := 0.0
	n := float64(len(history))
	for f := range query {
		var sum, sumSq float64
		for _, h := range history {
			sum += h[f]
			sumSq += h[f] * h[f]
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		std := math.Sqrt(variance) + stdEpsilon
		z := math.Abs(query[f]-mean) / std
		if z > maxZ {
			maxZ = z
		}
	}

	return math.Min(maxZ/saturatingZScore, 1.0)
}
