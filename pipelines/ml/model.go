package ml

// InputKind tags what a model trains on: the engineered feature matrix or
// the raw (timestamp, value) series.
type InputKind int

const (
	FeatureMatrix InputKind = iota
	RawSeries
)

// TrainingInput carries everything a model might need for one fit call.
// Tabular models read X/Y (and optionally ValX/ValY for early stopping);
// series models read Series and ignore the matrices.
type TrainingInput struct {
	X            [][]float64
	Y            []float64
	ValX         [][]float64
	ValY         []float64
	FeatureNames []string

	Series *SeriesInput
}

// SeriesInput is the raw two-column series for forecasters: parallel
// timestamp (unix seconds) and value slices, chronologically ordered.
type SeriesInput struct {
	Timestamps []int64   `json:"timestamps"`
	Values     []float64 `json:"values"`
}

// ForecastResult is a horizon of future point forecasts with lower/upper
// bounds, all three slices the same length.
type ForecastResult struct {
	Forecast []float64 `json:"forecast"`
	Lower    []float64 `json:"lower"`
	Upper    []float64 `json:"upper"`
}

// Model is the uniform contract every backend implements. Fit replaces any
// previously trained state. Predict on an unfitted model returns
// ErrModelUnavailable.
type Model interface {
	Kind() string
	InputKind() InputKind
	Fit(in *TrainingInput) error
	Predict(X [][]float64) ([]float64, error)
}

// Forecaster is the optional capability of extending a fitted series by
// horizon future periods with native bounds.
type Forecaster interface {
	Forecast(horizon int) (*ForecastResult, error)
}

// FeatureImportancer is the optional capability of reporting per-feature
// importance scores after fitting.
type FeatureImportancer interface {
	FeatureImportance() map[string]float64
}

// ModelSpec is one entry in the capability registry: a stable key, an
// availability flag, and a constructor. Registry order is insertion order
// and drives the orchestrator's deterministic fallback.
type ModelSpec struct {
	Key       string
	Available bool
	New       func(seed int64) Model
}

// ModelKeys are the default registry keys, in registration order.
const (
	KindGradientBoosting = "gradient_boosting"
	KindRandomForest     = "random_forest"
	KindHoltWinters      = "holt_winters"
)

// DefaultRegistry returns the standard three-model registry.
func DefaultRegistry() []ModelSpec {
	return []ModelSpec{
		{Key: KindGradientBoosting, Available: true, New: func(seed int64) Model {
			return NewGradientBoostingRegressor(seed)
		}},
		{Key: KindRandomForest, Available: true, New: func(seed int64) Model {
			return NewRandomForestRegressor(seed)
		}},
		{Key: KindHoltWinters, Available: true, New: func(seed int64) Model {
			return NewSeasonalForecaster()
		}},
	}
}
