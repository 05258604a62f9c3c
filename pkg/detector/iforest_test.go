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
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func clusteredData(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := range data {
		row := make([]float64, dim)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		data[i] = row
	}
	return data
}

func TestFitForest_RejectsSmallSnapshots(t *testing.T) {
	_, err := FitForest(clusteredData(MinTrainSamples-1, 2, 1))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientSamples))

	_, err = FitForest(nil)
	require.Error(t, err)
}

func TestFitForest_SeparatesOutliers(t *testing.T) {
	data := clusteredData(200, 2, 7)
	f, err := FitForest(data, WithSeed(42))
	require.NoError(t, err)
	require.Equal(t, 200, f.TrainSize())

	center := []float64{0, 0}
	outlier := []float64{50, 50}

	require.Greater(t, f.Score(outlier), f.Score(center))
	require.Greater(t, f.Score(outlier), 0.6)
	require.Less(t, f.Score(center), 0.55)

	// sklearn-style decision: negative for anomalies, positive for inliers
	require.Negative(t, f.Decision(outlier))
	require.Positive(t, f.Decision(center))
}

func TestFitForest_ScoresStayInUnitInterval(t *testing.T) {
	data := clusteredData(100, 3, 3)
	f, err := FitForest(data, WithEnsembleSize(50), WithSubsampleSize(64), WithSeed(1))
	require.NoError(t, err)

	probes := append(clusteredData(20, 3, 4), []float64{1000, -1000, 1000})
	for _, p := range probes {
		s := f.Score(p)
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
	}
}

func TestFitForest_SeedIsDeterministic(t *testing.T) {
	data := clusteredData(100, 2, 11)
	f1, err := FitForest(data, WithSeed(99))
	require.NoError(t, err)
	f2, err := FitForest(data, WithSeed(99))
	require.NoError(t, err)

	probe := []float64{0.5, -0.5}
	require.Equal(t, f1.Score(probe), f2.Score(probe))
	require.Equal(t, f1.Decision(probe), f2.Decision(probe))
}

func TestFitForest_ZeroContaminationUsesFixedOffset(t *testing.T) {
	data := clusteredData(50, 2, 5)
	f, err := FitForest(data, WithContamination(0), WithSeed(8))
	require.NoError(t, err)

	// with a fixed 0.5 offset, decision is exactly 0.5 - score
	probe := []float64{1, 1}
	require.InDelta(t, 0.5-f.Score(probe), f.Decision(probe), 1e-12)
}
