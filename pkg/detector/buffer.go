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

// SampleBuffer is a fixed-capacity FIFO window over the most recent feature
// vectors. Once full, appending evicts the oldest entry. It performs no
// dimension validation; that is the engine's responsibility.
type SampleBuffer struct {
	entries  [][]float64
	capacity int
	head     int
	full     bool
}

func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleBuffer{
		entries:  make([][]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts a copy of v at the tail, evicting the oldest entry when the
// buffer is at capacity.
func (b *SampleBuffer) Append(v []float64) {
	owned := make([]float64, len(v))
	copy(owned, v)
	if !b.full {
		b.entries = append(b.entries, owned)
		if len(b.entries) == b.capacity {
			b.full = true
		}
		return
	}
	b.entries[b.head] = owned
	b.head = (b.head + 1) % b.capacity
}

// Len returns the current occupancy.
func (b *SampleBuffer) Len() int {
	return len(b.entries)
}

// Capacity returns the configured maximum occupancy.
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// Full reports whether the buffer is at capacity.
func (b *SampleBuffer) Full() bool {
	return b.full
}

// Snapshot returns the buffered vectors ordered oldest to newest. The outer
// slice is freshly allocated; the vectors themselves are never mutated after
// insertion so they can be shared with consumers.
func (b *SampleBuffer) Snapshot() [][]float64 {
	out := make([][]float64, 0, len(b.entries))
	out = append(out, b.entries[b.head:]...)
	out = append(out, b.entries[:b.head]...)
	return out
}
