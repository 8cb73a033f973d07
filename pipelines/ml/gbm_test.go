package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearTrainingInput builds y = 2*x0 + 3 over a small grid.
func linearTrainingInput(n int) *TrainingInput {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), float64(i % 5)}
		y[i] = 2*float64(i) + 3
	}
	return &TrainingInput{X: X, Y: y, FeatureNames: []string{"x0", "x1"}}
}

func TestGradientBoostingRegressor(t *testing.T) {
	t.Run("learns a linear signal better than the mean", func(t *testing.T) {
		in := linearTrainingInput(40)
		model := NewGradientBoostingRegressor(1)

		require.NoError(t, model.Fit(in))
		preds, err := model.Predict(in.X)
		require.NoError(t, err)

		meanY := meanOf(in.Y)
		baseline := make([]float64, len(in.Y))
		for i := range baseline {
			baseline[i] = meanY
		}
		assert.Less(t, rootMeanSquaredError(in.Y, preds), rootMeanSquaredError(in.Y, baseline))
	})

	t.Run("early stopping truncates to the best round", func(t *testing.T) {
		in := linearTrainingInput(40)
		in.ValX = [][]float64{{40, 0}, {41, 1}, {42, 2}}
		in.ValY = []float64{83, 85, 87}

		model := NewGradientBoostingRegressor(1)
		model.EarlyStoppingRounds = 3
		require.NoError(t, model.Fit(in))

		assert.LessOrEqual(t, len(model.Trees), model.NumRounds)
		assert.Equal(t, model.BestRound, len(model.Trees))
	})

	t.Run("refit replaces trained state", func(t *testing.T) {
		model := NewGradientBoostingRegressor(1)
		require.NoError(t, model.Fit(linearTrainingInput(20)))
		firstTrees := len(model.Trees)

		require.NoError(t, model.Fit(linearTrainingInput(20)))
		assert.Equal(t, firstTrees, len(model.Trees))
	})

	t.Run("predict before fit", func(t *testing.T) {
		model := NewGradientBoostingRegressor(1)
		_, err := model.Predict([][]float64{{1, 2}})
		assert.ErrorIs(t, err, ErrModelUnavailable)
	})

	t.Run("feature importance is normalized", func(t *testing.T) {
		model := NewGradientBoostingRegressor(1)
		require.NoError(t, model.Fit(linearTrainingInput(40)))

		imp := model.FeatureImportance()
		require.Len(t, imp, 2)
		total := 0.0
		for _, v := range imp {
			total += v
		}
		assert.InDelta(t, 1.0, total, 1e-9)
		// x0 carries the whole signal.
		assert.Greater(t, imp["x0"], imp["x1"])
	})

	t.Run("empty input", func(t *testing.T) {
		model := NewGradientBoostingRegressor(1)
		err := model.Fit(&TrainingInput{})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestRegressionTree(t *testing.T) {
	t.Run("splits a step function exactly", func(t *testing.T) {
		X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
		y := []float64{5, 5, 5, 20, 20, 20}

		tree := NewRegressionTree(3, 2, 1)
		require.NoError(t, tree.Fit(X, y, nil))

		for i, x := range X {
			got, err := tree.PredictOne(x)
			require.NoError(t, err)
			assert.Equal(t, y[i], got)
		}
	})

	t.Run("constant target yields a single leaf", func(t *testing.T) {
		X := [][]float64{{1}, {2}, {3}}
		y := []float64{7, 7, 7}

		tree := NewRegressionTree(3, 2, 1)
		require.NoError(t, tree.Fit(X, y, nil))
		assert.True(t, tree.Root.IsLeaf)
		assert.Equal(t, 0, tree.depth())
	})

	t.Run("feature width mismatch", func(t *testing.T) {
		tree := NewRegressionTree(3, 2, 1)
		require.NoError(t, tree.Fit([][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}}, []float64{1, 2, 3, 4}, nil))
		_, err := tree.PredictOne([]float64{1})
		assert.Error(t, err)
	})
}

func TestRootMeanSquaredError(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2), rootMeanSquaredError([]float64{0, 0}, []float64{1, -math.Sqrt(3)}), 1e-9)
	assert.True(t, math.IsInf(rootMeanSquaredError(nil, nil), 1))
}
