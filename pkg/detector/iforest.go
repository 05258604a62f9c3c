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
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

const (
	defaultEnsembleSize  = 100
	defaultContamination = 0.1
	defaultSeed          = 42

	// MinTrainSamples is the smallest snapshot an ensemble may be trained on.
	MinTrainSamples = 20

	eulerMascheroni = 0.5772156649
)

// ErrInsufficientSamples is returned when training is attempted with fewer
// than MinTrainSamples vectors.
var ErrInsufficientSamples = errors.New("insufficient samples to train ensemble")

// IsolationForest estimates how isolatable a point is relative to its training
// distribution: points separated by few random splits are anomalous. A forest
// is immutable once built; retraining produces a new forest.
type IsolationForest struct {
	trees     []*isolationTree
	trainSize int
	cNorm     float64
	offset    float64
}

type isolationTree struct {
	root *treeNode
}

// treeNode is an internal split node when left/right are set, otherwise a leaf
// recording the residual subsample size.
type treeNode struct {
	splitFeature int
	splitValue   float64
	left         *treeNode
	right        *treeNode
	size         int
}

// ForestOption configures forest training.
type ForestOption func(*forestSettings)

type forestSettings struct {
	ensembleSize  int
	sampleSize    int
	contamination float64
	rng           *rand.Rand
}

// WithEnsembleSize sets the number of isolation trees.
func WithEnsembleSize(n int) ForestOption {
	return func(s *forestSettings) {
		if n > 0 {
			s.ensembleSize = n
		}
	}
}

// WithSubsampleSize caps the training subsample drawn for each tree. Zero
// means the full snapshot.
func WithSubsampleSize(n int) ForestOption {
	return func(s *forestSettings) {
		s.sampleSize = n
	}
}

// WithContamination sets the expected share of anomalous training samples,
// which shifts the decision offset. Zero disables the shift.
func WithContamination(c float64) ForestOption {
	return func(s *forestSettings) {
		s.contamination = c
	}
}

// WithSeed sets the random seed for reproducible training.
func WithSeed(seed int64) ForestOption {
	return func(s *forestSettings) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// FitForest trains an isolation forest on the given vectors. The data must be
// rectangular with at least MinTrainSamples rows.
func FitForest(data [][]float64, opts ...ForestOption) (*IsolationForest, error) {
	settings := forestSettings{
		ensembleSize:  defaultEnsembleSize,
		contamination: defaultContamination,
		rng:           rand.New(rand.NewSource(defaultSeed)),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	nSamples := len(data)
	if nSamples < MinTrainSamples {
		return nil, errors.Wrapf(ErrInsufficientSamples, "got %d, need %d", nSamples, MinTrainSamples)
	}
	nFeatures := len(data[0])
	if nFeatures == 0 {
		return nil, errors.New("cannot train on empty feature vectors")
	}

	sampleSize := settings.sampleSize
	if sampleSize <= 0 || sampleSize > nSamples {
		sampleSize = nSamples
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	forest := &IsolationForest{
		trees:     make([]*isolationTree, settings.ensembleSize),
		trainSize: sampleSize,
		cNorm:     expectedPathLength(float64(sampleSize)),
	}
	for i := range forest.trees {
		// subsample without replacement
		indices := settings.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		forest.trees[i] = &isolationTree{
			root: buildNode(sample, nFeatures, 0, maxDepth, settings.rng),
		}
	}

	forest.offset = 0.5
	if settings.contamination > 0 {
		scores := make([]float64, nSamples)
		for i, row := range data {
			scores[i] = forest.Score(row)
		}
		forest.offset = percentile(scores, 100*(1-settings.contamination))
	}

	return forest, nil
}

func buildNode(data [][]float64, nFeatures, depth, maxDepth int, rng *rand.Rand) *treeNode {
	n := len(data)
	if depth >= maxDepth || n <= 1 {
		return &treeNode{size: n}
	}

	feature := rng.Intn(nFeatures)
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	// degenerate feature, nothing left to split on
	if minVal == maxVal {
		return &treeNode{size: n}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         buildNode(left, nFeatures, depth+1, maxDepth, rng),
		right:        buildNode(right, nFeatures, depth+1, maxDepth, rng),
	}
}

// Score returns the normalized anomaly score in (0,1]: near 1 for anomalies,
// 0.5 and below for normal points.
func (f *IsolationForest) Score(v []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += pathLength(v, tree.root, 0)
	}
	avgPath := total / float64(len(f.trees))
	return math.Pow(2, -avgPath/f.cNorm)
}

// Decision returns the signed decision value: positive for normal points,
// negative for anomalies. The contamination option shifts the zero crossing so
// that roughly that share of the training set scores negative.
func (f *IsolationForest) Decision(v []float64) float64 {
	return f.offset - f.Score(v)
}

// TrainSize returns the per-tree subsample size the forest was built with.
func (f *IsolationForest) TrainSize() int {
	return f.trainSize
}

func pathLength(v []float64, n *treeNode, depth int) float64 {
	if n.left == nil && n.right == nil {
		// adjust by the expected remaining path length for the residual
		// subsample that reached this leaf
		return float64(depth) + expectedPathLength(float64(n.size))
	}
	if v[n.splitFeature] < n.splitValue {
		return pathLength(v, n.left, depth+1)
	}
	return pathLength(v, n.right, depth+1)
}

// expectedPathLength returns the average path length of an unsuccessful BST
// search: c(n) = 2*H(n-1) - 2*(n-1)/n with H(n) ~ ln(n) + gamma.
func expectedPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerMascheroni) - 2*(n-1)/n
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}
