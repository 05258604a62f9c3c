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
	"testing"

	"github.com/stretchr/testify/require"
)

func repeatVector(v []float64, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestStatisticalScore(t *testing.T) {
	tests := []struct {
		name    string
		query   []float64
		history [][]float64
		want    float64
	}{
		{
			name:    "too little history",
			query:   []float64{1, 2, 3},
			history: repeatVector([]float64{0, 0, 0}, 4),
			want:    0,
		},
		{
			name:    "empty query",
			query:   nil,
			history: repeatVector([]float64{0, 0, 0}, 10),
			want:    0,
		},
		{
			name:    "constant history far query saturates",
			query:   []float64{100, 100, 100},
			history: repeatVector([]float64{0, 0, 0}, 25),
			want:    1,
		},
		{
			name:    "query equal to constant history",
			query:   []float64{5, 5, 5},
			history: repeatVector([]float64{5, 5, 5}, 25),
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatisticalScore(tt.query, tt.history)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestStatisticalScore_ScalesWithDeviation(t *testing.T) {
	// history: mean 0, population std 1 on the single feature
	history := make([][]float64, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history, []float64{1})
		history = append(history, []float64{-1})
	}

	// z = 1.5 on a feature with std 1 maps to 0.5; the epsilon added to the
	// std shifts the score by a few 1e-7
	require.InDelta(t, 0.5, StatisticalScore([]float64{1.5}, history), 1e-5)
	// z >= 3 saturates at 1
	require.InDelta(t, 1.0, StatisticalScore([]float64{4}, history), 1e-5)
}

func TestStatisticalScore_UsesWorstFeature(t *testing.T) {
	history := make([][]float64, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history, []float64{1, 1})
		history = append(history, []float64{-1, -1})
	}

	// first feature is in distribution, second deviates by z=3
	require.InDelta(t, 1.0, StatisticalScore([]float64{0, 3}, history), 1e-5)
}
