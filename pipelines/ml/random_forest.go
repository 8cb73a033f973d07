package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// RandomForestRegressor averages bootstrap-trained regression trees, each
// restricted to a random sqrt-sized feature subset. Trees train in parallel;
// each tree derives its own rand source from the forest seed so results are
// reproducible regardless of goroutine scheduling.
type RandomForestRegressor struct {
	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`

	Trees        []*RegressionTree `json:"trees"`
	FeatureNames []string          `json:"feature_names,omitempty"`
	NumFeatures  int               `json:"num_features"`
}

// NewRandomForestRegressor creates a forest with default hyperparameters:
// 50 trees of depth 10.
func NewRandomForestRegressor(seed int64) *RandomForestRegressor {
	return &RandomForestRegressor{
		NumTrees:        50,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            seed,
	}
}

// Kind implements Model.
func (rf *RandomForestRegressor) Kind() string { return KindRandomForest }

// InputKind implements Model.
func (rf *RandomForestRegressor) InputKind() InputKind { return FeatureMatrix }

// Fit trains the forest, discarding any previously trained state.
func (rf *RandomForestRegressor) Fit(in *TrainingInput) error {
	if in == nil || len(in.X) == 0 {
		return fmt.Errorf("%w: no training rows", ErrInsufficientData)
	}
	if len(in.X) != len(in.Y) {
		return fmt.Errorf("X has %d rows but y has %d values", len(in.X), len(in.Y))
	}

	rf.NumFeatures = len(in.X[0])
	rf.FeatureNames = in.FeatureNames
	rf.Trees = make([]*RegressionTree, rf.NumTrees)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < rf.NumTrees; i++ {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(rf.Seed + int64(treeIdx)))

			sampleX, sampleY := bootstrapSample(in.X, in.Y, rng)
			features := sampleFeatureSubset(rf.NumFeatures, rng)

			tree := NewRegressionTree(rf.MaxDepth, rf.MinSamplesSplit, rf.MinSamplesLeaf)
			err := tree.Fit(sampleX, sampleY, features)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("tree %d: %w", treeIdx, err)
				return
			}
			rf.Trees[treeIdx] = tree
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		rf.Trees = nil
		return firstErr
	}
	return nil
}

// bootstrapSample draws len(X) rows with replacement.
func bootstrapSample(X [][]float64, y []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(X)
	sampleX := make([][]float64, n)
	sampleY := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleX[i] = X[j]
		sampleY[i] = y[j]
	}
	return sampleX, sampleY
}

// sampleFeatureSubset draws ceil(sqrt(numFeatures)) distinct feature indexes.
func sampleFeatureSubset(numFeatures int, rng *rand.Rand) []int {
	k := int(math.Ceil(math.Sqrt(float64(numFeatures))))
	if k < 1 {
		k = 1
	}
	if k > numFeatures {
		k = numFeatures
	}
	subset := rng.Perm(numFeatures)[:k]
	sort.Ints(subset)
	return subset
}

// Predict implements Model: the mean of the per-tree predictions.
func (rf *RandomForestRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, fmt.Errorf("%w: random forest not fitted", ErrModelUnavailable)
	}
	out := make([]float64, len(X))
	for i, x := range X {
		sum := 0.0
		for _, tree := range rf.Trees {
			v, err := tree.PredictOne(x)
			if err != nil {
				return nil, err
			}
			sum += v
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out, nil
}

// PredictWithInterval returns the mean prediction plus a 95% band from the
// spread of the per-tree predictions.
func (rf *RandomForestRegressor) PredictWithInterval(x []float64) (value, lower, upper float64, err error) {
	if len(rf.Trees) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: random forest not fitted", ErrModelUnavailable)
	}
	preds := make([]float64, len(rf.Trees))
	for i, tree := range rf.Trees {
		preds[i], err = tree.PredictOne(x)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	value = meanOf(preds)
	std := math.Sqrt(populationVariance(preds, value))
	return value, value - 1.96*std, value + 1.96*std, nil
}

// FeatureImportance implements FeatureImportancer: split sample counts
// summed over all trees, normalized to sum to 1.
func (rf *RandomForestRegressor) FeatureImportance() map[string]float64 {
	acc := make([]float64, rf.NumFeatures)
	for _, tree := range rf.Trees {
		tree.accumulateImportance(acc)
	}
	return normalizeImportance(acc, rf.FeatureNames)
}
