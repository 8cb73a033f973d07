package ml

import (
	"fmt"
	"math"
)

// GradientBoostingRegressor fits shallow regression trees to the residuals
// of the running prediction, shrunk by the learning rate. When a validation
// pair is supplied it early-stops on validation RMSE; otherwise it runs the
// full round budget.
type GradientBoostingRegressor struct {
	NumRounds           int     `json:"num_rounds"`
	LearningRate        float64 `json:"learning_rate"`
	MaxDepth            int     `json:"max_depth"`
	MinSamplesSplit     int     `json:"min_samples_split"`
	MinSamplesLeaf      int     `json:"min_samples_leaf"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds"`
	Seed                int64   `json:"seed"`

	BaseValue    float64           `json:"base_value"`
	Trees        []*RegressionTree `json:"trees"`
	FeatureNames []string          `json:"feature_names,omitempty"`
	NumFeatures  int               `json:"num_features"`
	BestRound    int               `json:"best_round"`
}

// NewGradientBoostingRegressor creates a booster with default
// hyperparameters: 100 rounds, learning rate 0.1, depth-3 trees, early
// stopping after 10 stagnant rounds.
func NewGradientBoostingRegressor(seed int64) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NumRounds:           100,
		LearningRate:        0.1,
		MaxDepth:            3,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		EarlyStoppingRounds: 10,
		Seed:                seed,
	}
}

// Kind implements Model.
func (g *GradientBoostingRegressor) Kind() string { return KindGradientBoosting }

// InputKind implements Model.
func (g *GradientBoostingRegressor) InputKind() InputKind { return FeatureMatrix }

// Fit trains the booster, discarding any previously trained state.
func (g *GradientBoostingRegressor) Fit(in *TrainingInput) error {
	if in == nil || len(in.X) == 0 {
		return fmt.Errorf("%w: no training rows", ErrInsufficientData)
	}
	if len(in.X) != len(in.Y) {
		return fmt.Errorf("X has %d rows but y has %d values", len(in.X), len(in.Y))
	}

	g.Trees = nil
	g.NumFeatures = len(in.X[0])
	g.FeatureNames = in.FeatureNames
	g.BaseValue = meanOf(in.Y)
	g.BestRound = 0

	useValidation := len(in.ValX) > 0 && len(in.ValX) == len(in.ValY) && g.EarlyStoppingRounds > 0

	preds := make([]float64, len(in.Y))
	for i := range preds {
		preds[i] = g.BaseValue
	}
	var valPreds []float64
	if useValidation {
		valPreds = make([]float64, len(in.ValY))
		for i := range valPreds {
			valPreds[i] = g.BaseValue
		}
	}

	residuals := make([]float64, len(in.Y))
	bestValRMSE := math.Inf(1)
	stagnant := 0

	for round := 0; round < g.NumRounds; round++ {
		for i := range residuals {
			residuals[i] = in.Y[i] - preds[i]
		}

		tree := NewRegressionTree(g.MaxDepth, g.MinSamplesSplit, g.MinSamplesLeaf)
		if err := tree.Fit(in.X, residuals, nil); err != nil {
			return fmt.Errorf("boosting round %d: %w", round, err)
		}
		g.Trees = append(g.Trees, tree)

		for i, x := range in.X {
			v, err := tree.PredictOne(x)
			if err != nil {
				return fmt.Errorf("boosting round %d: %w", round, err)
			}
			preds[i] += g.LearningRate * v
		}

		if !useValidation {
			g.BestRound = len(g.Trees)
			continue
		}

		for i, x := range in.ValX {
			v, err := tree.PredictOne(x)
			if err != nil {
				return fmt.Errorf("boosting round %d: %w", round, err)
			}
			valPreds[i] += g.LearningRate * v
		}
		rmse := rootMeanSquaredError(in.ValY, valPreds)
		if rmse < bestValRMSE {
			bestValRMSE = rmse
			g.BestRound = len(g.Trees)
			stagnant = 0
		} else {
			stagnant++
			if stagnant >= g.EarlyStoppingRounds {
				break
			}
		}
	}

	// Keep only the rounds up to the validation optimum.
	if useValidation && g.BestRound < len(g.Trees) {
		g.Trees = g.Trees[:g.BestRound]
	}
	return nil
}

// Predict implements Model.
func (g *GradientBoostingRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(g.Trees) == 0 {
		return nil, fmt.Errorf("%w: gradient boosting model not fitted", ErrModelUnavailable)
	}
	out := make([]float64, len(X))
	for i, x := range X {
		pred := g.BaseValue
		for _, tree := range g.Trees {
			v, err := tree.PredictOne(x)
			if err != nil {
				return nil, err
			}
			pred += g.LearningRate * v
		}
		out[i] = pred
	}
	return out, nil
}

// FeatureImportance implements FeatureImportancer: per-feature split sample
// counts summed over all trees, normalized to sum to 1.
func (g *GradientBoostingRegressor) FeatureImportance() map[string]float64 {
	acc := make([]float64, g.NumFeatures)
	for _, tree := range g.Trees {
		tree.accumulateImportance(acc)
	}
	return normalizeImportance(acc, g.FeatureNames)
}

func normalizeImportance(acc []float64, names []string) map[string]float64 {
	total := 0.0
	for _, v := range acc {
		total += v
	}
	out := make(map[string]float64, len(acc))
	for i, v := range acc {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		if total > 0 {
			out[name] = v / total
		} else {
			out[name] = 0
		}
	}
	return out
}

func rootMeanSquaredError(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return math.Inf(1)
	}
	ss := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(yTrue)))
}
