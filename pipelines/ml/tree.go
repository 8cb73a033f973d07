package ml

import (
	"fmt"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean target
// value of their samples; internal nodes split on feature <= threshold.
type treeNode struct {
	IsLeaf    bool      `json:"is_leaf"`
	Value     float64   `json:"value"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
	Samples   int       `json:"samples"`
}

// RegressionTree is a variance-reduction regression tree. It is the shared
// base learner of the boosting and forest ensembles.
type RegressionTree struct {
	Root            *treeNode `json:"root"`
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	MinSamplesLeaf  int       `json:"min_samples_leaf"`
	NumFeatures     int       `json:"num_features"`
}

// NewRegressionTree creates a tree with the given limits. Non-positive
// arguments fall back to defaults.
func NewRegressionTree(maxDepth, minSamplesSplit, minSamplesLeaf int) *RegressionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 1
	}
	return &RegressionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

// Fit builds the tree on X/y. candidateFeatures restricts which feature
// indexes may be split on (the forest passes a random subset per tree);
// nil means all features are candidates.
func (t *RegressionTree) Fit(X [][]float64, y []float64, candidateFeatures []int) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: empty training data", ErrInsufficientData)
	}
	if len(X) != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", len(X), len(y))
	}
	t.NumFeatures = len(X[0])

	if candidateFeatures == nil {
		candidateFeatures = make([]int, t.NumFeatures)
		for i := range candidateFeatures {
			candidateFeatures[i] = i
		}
	}

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	t.Root = t.build(X, y, indices, candidateFeatures, 0)
	return nil
}

func (t *RegressionTree) build(X [][]float64, y []float64, indices, features []int, depth int) *treeNode {
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = y[idx]
	}
	mean := meanOf(values)
	variance := populationVariance(values, mean)

	node := &treeNode{Value: mean, Samples: len(indices)}

	if depth >= t.MaxDepth || len(indices) < t.MinSamplesSplit || variance < 1e-7 {
		node.IsLeaf = true
		return node
	}

	feature, threshold, gain := t.bestSplit(X, y, indices, features, variance)
	if gain <= 0 {
		node.IsLeaf = true
		return node
	}

	left, right := partition(X, indices, feature, threshold)
	if len(left) < t.MinSamplesLeaf || len(right) < t.MinSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.build(X, y, left, features, depth+1)
	node.Right = t.build(X, y, right, features, depth+1)
	return node
}

// bestSplit scans candidate features and midpoint thresholds for the split
// with the largest variance reduction.
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, indices, features []int, parentVariance float64) (int, float64, float64) {
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	for _, feature := range features {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = X[idx][feature]
		}

		for _, threshold := range midpointThresholds(values) {
			left, right := partition(X, indices, feature, threshold)
			if len(left) == 0 || len(right) == 0 {
				continue
			}

			leftValues := make([]float64, len(left))
			for i, idx := range left {
				leftValues[i] = y[idx]
			}
			rightValues := make([]float64, len(right))
			for i, idx := range right {
				rightValues[i] = y[idx]
			}

			n := float64(len(indices))
			weighted := (float64(len(left))/n)*populationVariance(leftValues, meanOf(leftValues)) +
				(float64(len(right))/n)*populationVariance(rightValues, meanOf(rightValues))

			if gain := parentVariance - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func partition(X [][]float64, indices []int, feature int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// midpointThresholds returns the midpoints between consecutive unique values.
func midpointThresholds(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	unique := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}
	sort.Float64s(unique)

	thresholds := make([]float64, len(unique)-1)
	for i := 0; i < len(unique)-1; i++ {
		thresholds[i] = (unique[i] + unique[i+1]) / 2
	}
	return thresholds
}

// PredictOne returns the leaf value for a single sample.
func (t *RegressionTree) PredictOne(x []float64) (float64, error) {
	if t.Root == nil {
		return 0, fmt.Errorf("%w: tree not fitted", ErrModelUnavailable)
	}
	if len(x) != t.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", t.NumFeatures, len(x))
	}
	node := t.Root
	for !node.IsLeaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value, nil
}

// accumulateImportance adds each split feature's sample count into the
// importance accumulator. Callers normalize at the ensemble level.
func (t *RegressionTree) accumulateImportance(acc []float64) {
	var walk func(node *treeNode)
	walk = func(node *treeNode) {
		if node == nil || node.IsLeaf {
			return
		}
		if node.Feature < len(acc) {
			acc[node.Feature] += float64(node.Samples)
		}
		walk(node.Left)
		walk(node.Right)
	}
	walk(t.Root)
}

// depth returns the maximum depth of the fitted tree.
func (t *RegressionTree) depth() int {
	var walk func(node *treeNode, d int) int
	walk = func(node *treeNode, d int) int {
		if node == nil || node.IsLeaf {
			return d
		}
		l := walk(node.Left, d+1)
		r := walk(node.Right, d+1)
		if l > r {
			return l
		}
		return r
	}
	return walk(t.Root, 0)
}

func populationVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(values))
}
