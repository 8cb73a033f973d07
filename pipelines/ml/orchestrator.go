package ml

import (
	"fmt"
	"math"
	"sort"

	"github.com/nagasriramnani/Wastewater-Analytics-Hybrid-AI-Demo-Platform/utils"
)

// qualityThreshold is the minimum quality score a dataset must reach before
// any model is trained.
const qualityThreshold = 0.5

// Orchestrator trains every registered model against one dataset with
// per-model fault isolation: a failing model is recorded with sentinel
// metrics and the run continues.
type Orchestrator struct {
	MaxRows             int
	TestSize            float64
	ValSize             float64
	EarlyStoppingRounds int
	Seed                int64
	Factory             *FeatureFactory
	Registry            []ModelSpec

	logger *utils.Logger
}

// NewOrchestrator creates an orchestrator with the default registry, the
// default feature factory, and a 5000 row cap.
func NewOrchestrator(seed int64) *Orchestrator {
	return &Orchestrator{
		MaxRows:             5000,
		TestSize:            0.2,
		ValSize:             0.1,
		EarlyStoppingRounds: 10,
		Seed:                seed,
		Factory:             NewFeatureFactory(),
		Registry:            DefaultRegistry(),
		logger:              utils.GetLogger(),
	}
}

// TrainResult is the outcome of one TrainAll run. Models and Metrics contain
// an entry for every registry key: nil model plus sentinel metrics when that
// backend failed or was skipped.
type TrainResult struct {
	Models       map[string]Model
	Metrics      map[string]*RegressionMetrics
	BestModelKey string
	FeatureNames []string
	Order        []string
}

// TrainAll runs the full training pipeline: row cap, quality gate, one
// shared feature build for the tabular models, a raw-series fit for the
// forecaster, per-model evaluation, and deterministic best-model selection.
// dateCol and siteCol may be empty. Only a quality-gate rejection fails the
// run; individual model failures degrade to sentinel entries.
func (o *Orchestrator) TrainAll(ds *Dataset, target, dateCol, siteCol string, horizon int) (*TrainResult, error) {
	if o.MaxRows > 0 && ds.RowCount() > o.MaxRows {
		o.logger.Info("capping training rows",
			utils.Component("orchestrator"),
			utils.Int("rows", ds.RowCount()),
			utils.Int("max_rows", o.MaxRows))
		ds = ds.Head(o.MaxRows)
	}

	quality, err := ValidateDataQuality(ds, target)
	if err != nil {
		return nil, fmt.Errorf("quality gate: %w", err)
	}
	if quality.QualityScore < qualityThreshold {
		return nil, fmt.Errorf("%w: score %.2f below %.2f", ErrLowDataQuality, quality.QualityScore, qualityThreshold)
	}

	result := &TrainResult{
		Models:  make(map[string]Model),
		Metrics: make(map[string]*RegressionMetrics),
	}
	for _, spec := range o.Registry {
		result.Order = append(result.Order, spec.Key)
		result.Models[spec.Key] = nil
		result.Metrics[spec.Key] = SentinelMetrics()
	}

	// One feature build shared by all tabular models. A build failure marks
	// them unavailable without aborting the run.
	features, buildErr := o.Factory.Build(ds, target, dateCol, siteCol, o.TestSize, o.ValSize)
	if buildErr != nil {
		o.logger.Warn("feature build failed, tabular models unavailable",
			utils.Component("orchestrator"),
			utils.String("error", buildErr.Error()))
	} else {
		result.FeatureNames = features.FeatureNames
	}

	var series *SeriesInput
	if dateCol != "" && ds.HasColumn(dateCol) {
		series = seriesFromDataset(ds, target, dateCol)
	}

	for _, spec := range o.Registry {
		if !spec.Available {
			continue
		}

		var (
			model   Model
			metrics *RegressionMetrics
			fitErr  error
		)
		switch {
		case spec.New == nil:
			fitErr = fmt.Errorf("%w: no constructor for %s", ErrModelUnavailable, spec.Key)
		default:
			model, metrics, fitErr = o.trainOne(spec, features, buildErr, series, horizon)
		}

		if fitErr != nil {
			o.logger.Warn("model training failed",
				utils.Component("orchestrator"),
				utils.String("model", spec.Key),
				utils.String("error", fitErr.Error()))
			continue
		}

		result.Models[spec.Key] = model
		result.Metrics[spec.Key] = metrics
		o.logger.Info("model trained",
			utils.Component("orchestrator"),
			utils.String("model", spec.Key),
			utils.Float("rmse", metrics.RMSE))
	}

	result.BestModelKey = o.selectBest(result)
	return result, nil
}

// trainOne trains and evaluates a single backend, converting panics into
// errors so one model's failure never takes the run down.
func (o *Orchestrator) trainOne(spec ModelSpec, features *FeatureSet, buildErr error, series *SeriesInput, horizon int) (model Model, metrics *RegressionMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, metrics = nil, nil
			err = fmt.Errorf("%s panicked: %v", spec.Key, r)
		}
	}()

	model = spec.New(o.Seed)
	switch model.InputKind() {
	case RawSeries:
		return o.trainSeriesModel(spec, model, series, horizon)
	default:
		return o.trainTabularModel(spec, model, features, buildErr)
	}
}

func (o *Orchestrator) trainTabularModel(spec ModelSpec, model Model, features *FeatureSet, buildErr error) (Model, *RegressionMetrics, error) {
	if buildErr != nil {
		return nil, nil, fmt.Errorf("%s: feature build failed: %w", spec.Key, buildErr)
	}
	if len(features.TrainX) == 0 {
		return nil, nil, fmt.Errorf("%s: %w: empty train split", spec.Key, ErrInsufficientData)
	}

	if gbm, ok := model.(*GradientBoostingRegressor); ok {
		gbm.EarlyStoppingRounds = o.EarlyStoppingRounds
	}

	in := &TrainingInput{
		X:            features.TrainX,
		Y:            features.TrainY,
		ValX:         features.ValX,
		ValY:         features.ValY,
		FeatureNames: features.FeatureNames,
	}
	if err := model.Fit(in); err != nil {
		return nil, nil, fmt.Errorf("%s fit: %w", spec.Key, err)
	}

	// Evaluate on the most out-of-sample split available.
	evalX, evalY := features.TrainX, features.TrainY
	if len(features.ValX) > 0 {
		evalX, evalY = features.ValX, features.ValY
	}
	if len(features.TestX) > 0 {
		evalX, evalY = features.TestX, features.TestY
	}

	preds, err := model.Predict(evalX)
	if err != nil {
		return nil, nil, fmt.Errorf("%s predict: %w", spec.Key, err)
	}
	metrics, err := EvaluateRegression(evalY, preds)
	if err != nil {
		return nil, nil, fmt.Errorf("%s evaluate: %w", spec.Key, err)
	}
	return model, metrics, nil
}

// trainSeriesModel validates the forecaster by holdout refit: train on the
// prefix, forecast the last horizon points, score them with the same
// evaluator the tabular models use, then fit the returned model on the full
// series.
func (o *Orchestrator) trainSeriesModel(spec ModelSpec, model Model, series *SeriesInput, horizon int) (Model, *RegressionMetrics, error) {
	if series == nil || len(series.Values) == 0 {
		return nil, nil, fmt.Errorf("%s: %w: no date column for series model", spec.Key, ErrInsufficientData)
	}
	if horizon <= 0 {
		horizon = 1
	}

	n := len(series.Values)
	if n <= horizon {
		return nil, nil, fmt.Errorf("%s: %w: series of %d too short for horizon %d", spec.Key, ErrInsufficientData, n, horizon)
	}

	holdout := spec.New(o.Seed)
	trainSeries := &SeriesInput{
		Timestamps: series.Timestamps[:n-horizon],
		Values:     series.Values[:n-horizon],
	}
	if err := holdout.Fit(&TrainingInput{Series: trainSeries}); err != nil {
		return nil, nil, fmt.Errorf("%s holdout fit: %w", spec.Key, err)
	}
	fc, ok := holdout.(Forecaster)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w: series model lacks forecast capability", spec.Key, ErrModelUnavailable)
	}
	forecast, err := fc.Forecast(horizon)
	if err != nil {
		return nil, nil, fmt.Errorf("%s holdout forecast: %w", spec.Key, err)
	}
	metrics, err := EvaluateRegression(series.Values[n-horizon:], forecast.Forecast)
	if err != nil {
		return nil, nil, fmt.Errorf("%s evaluate: %w", spec.Key, err)
	}

	if err := model.Fit(&TrainingInput{Series: series}); err != nil {
		return nil, nil, fmt.Errorf("%s fit: %w", spec.Key, err)
	}
	return model, metrics, nil
}

// selectBest picks the key with the minimum finite RMSE. If no model has a
// finite RMSE it falls back to gradient boosting when that model trained,
// else the first registry key. Never errors.
func (o *Orchestrator) selectBest(result *TrainResult) string {
	best := ""
	bestRMSE := math.Inf(1)
	for _, key := range result.Order {
		m := result.Metrics[key]
		if m == nil || math.IsInf(m.RMSE, 1) || math.IsNaN(m.RMSE) {
			continue
		}
		if m.RMSE < bestRMSE {
			bestRMSE = m.RMSE
			best = key
		}
	}
	if best != "" {
		return best
	}
	if result.Models[KindGradientBoosting] != nil {
		return KindGradientBoosting
	}
	if len(result.Order) > 0 {
		return result.Order[0]
	}
	return ""
}

// seriesFromDataset extracts the (timestamp, value) series for the target,
// dropping rows where either side is missing and sorting chronologically.
func seriesFromDataset(ds *Dataset, target, dateCol string) *SeriesInput {
	type point struct {
		ts    int64
		value float64
	}
	var points []point
	for _, row := range ds.Rows {
		t, tok := parseTimeValue(row[dateCol])
		v, vok := parseFloatValue(row[target])
		if !tok || !vok {
			continue
		}
		points = append(points, point{ts: t.Unix(), value: v})
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].ts < points[b].ts })

	series := &SeriesInput{
		Timestamps: make([]int64, len(points)),
		Values:     make([]float64, len(points)),
	}
	for i, p := range points {
		series.Timestamps[i] = p.ts
		series.Values[i] = p.value
	}
	return series
}
