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

func TestSampleBuffer_FillAndOverwrite(t *testing.T) {
	b := NewSampleBuffer(3)
	require.Equal(t, 0, b.Len())
	require.False(t, b.Full())

	b.Append([]float64{1})
	b.Append([]float64{2})
	require.Equal(t, 2, b.Len())
	require.False(t, b.Full())
	require.Equal(t, [][]float64{{1}, {2}}, b.Snapshot())

	b.Append([]float64{3})
	require.True(t, b.Full())
	require.Equal(t, [][]float64{{1}, {2}, {3}}, b.Snapshot())

	// past capacity the oldest entries are dropped
	b.Append([]float64{4})
	b.Append([]float64{5})
	require.Equal(t, 3, b.Len())
	require.Equal(t, [][]float64{{3}, {4}, {5}}, b.Snapshot())
}

func TestSampleBuffer_AppendCopies(t *testing.T) {
	b := NewSampleBuffer(2)
	v := []float64{1, 2}
	b.Append(v)
	v[0] = 99
	require.Equal(t, [][]float64{{1, 2}}, b.Snapshot())
}

func TestSampleBuffer_SnapshotIsDetached(t *testing.T) {
	b := NewSampleBuffer(2)
	b.Append([]float64{1})
	b.Append([]float64{2})
	snap := b.Snapshot()
	b.Append([]float64{3})
	require.Equal(t, [][]float64{{1}, {2}}, snap)
}
