package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics holds the standard regression evaluation metrics.
type RegressionMetrics struct {
	MAE   float64 `json:"mae"`
	MSE   float64 `json:"mse"`
	RMSE  float64 `json:"rmse"`
	R2    float64 `json:"r2"`
	MAPE  float64 `json:"mape"`
	SMAPE float64 `json:"smape"`
}

// AsMap returns the metrics keyed by their conventional lowercase names.
func (m *RegressionMetrics) AsMap() map[string]float64 {
	return map[string]float64{
		"mae":   m.MAE,
		"mse":   m.MSE,
		"rmse":  m.RMSE,
		"r2":    m.R2,
		"mape":  m.MAPE,
		"smape": m.SMAPE,
	}
}

// SentinelMetrics marks a model that failed to train or evaluate: infinite
// error, so it can never win best-model selection.
func SentinelMetrics() *RegressionMetrics {
	return &RegressionMetrics{
		MAE:   math.Inf(1),
		MSE:   math.Inf(1),
		RMSE:  math.Inf(1),
		R2:    math.Inf(-1),
		MAPE:  math.Inf(1),
		SMAPE: math.Inf(1),
	}
}

// epsilon guards the MAPE/SMAPE denominators. Both metrics are biased when
// true values are near zero; this is documented behavior, not corrected.
const epsilon = 1e-10

// EvaluateRegression computes MAE, MSE, RMSE, R², MAPE and SMAPE. Pairs where
// either value is NaN are excluded first; if no pairs remain the metrics are
// undefined and ErrInsufficientData is returned.
func EvaluateRegression(yTrue, yPred []float64) (*RegressionMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("length mismatch: %d true values, %d predictions", len(yTrue), len(yPred))
	}

	var t, p []float64
	for i := range yTrue {
		if math.IsNaN(yTrue[i]) || math.IsNaN(yPred[i]) {
			continue
		}
		t = append(t, yTrue[i])
		p = append(p, yPred[i])
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: no valid prediction pairs", ErrInsufficientData)
	}

	n := float64(len(t))
	var sumAbs, sumSq, sumAPE, sumSAPE float64
	for i := range t {
		diff := t[i] - p[i]
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		sumAPE += math.Abs(diff) / math.Max(math.Abs(t[i]), epsilon)
		sumSAPE += math.Abs(diff) / math.Max((math.Abs(t[i])+math.Abs(p[i]))/2, epsilon)
	}

	meanTrue := stat.Mean(t, nil)
	var ssTot float64
	for _, v := range t {
		d := v - meanTrue
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sumSq/ssTot
	}

	return &RegressionMetrics{
		MAE:   sumAbs / n,
		MSE:   sumSq / n,
		RMSE:  math.Sqrt(sumSq / n),
		R2:    r2,
		MAPE:  100 * sumAPE / n,
		SMAPE: 100 * sumSAPE / n,
	}, nil
}

// QualityCheck is one pass/fail check of the data-quality gate.
type QualityCheck struct {
	Name    string  `json:"name"`
	Passed  bool    `json:"passed"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// QualityReport is the data-quality gate's output: independent checks scored
// as the fraction passed.
type QualityReport struct {
	QualityScore float64        `json:"quality_score"`
	Checks       []QualityCheck `json:"checks"`
}

// ValidateDataQuality runs the pre-training quality checks against a target
// column: target missing percentage below 10, duplicate row percentage below
// 5, and a non-negative bounded target range. The score is the fraction of
// checks passed; the orchestrator rejects datasets scoring below 0.5.
func ValidateDataQuality(ds *Dataset, target string) (*QualityReport, error) {
	if !ds.HasColumn(target) {
		return nil, fmt.Errorf("target %w: %s", ErrColumnNotFound, target)
	}
	rowCount := ds.RowCount()
	if rowCount == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", ErrInsufficientData)
	}

	report := &QualityReport{}

	missing := 0
	var minV, maxV float64
	first := true
	for _, row := range ds.Rows {
		v, ok := parseFloatValue(row[target])
		if !ok {
			missing++
			continue
		}
		if first {
			minV, maxV = v, v
			first = false
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	missingPct := 100 * float64(missing) / float64(rowCount)
	report.Checks = append(report.Checks, QualityCheck{
		Name:    "target_missing",
		Passed:  missingPct < 10,
		Value:   missingPct,
		Message: fmt.Sprintf("%.1f%% of target values missing", missingPct),
	})

	dupPct := 100 * float64(countDuplicateRows(ds)) / float64(rowCount)
	report.Checks = append(report.Checks, QualityCheck{
		Name:    "duplicate_rows",
		Passed:  dupPct < 5,
		Value:   dupPct,
		Message: fmt.Sprintf("%.1f%% duplicate rows", dupPct),
	})

	rangeOK := !first && minV >= 0 && maxV < 1e6
	report.Checks = append(report.Checks, QualityCheck{
		Name:    "target_range",
		Passed:  rangeOK,
		Value:   maxV,
		Message: fmt.Sprintf("target range [%.3f, %.3f]", minV, maxV),
	})

	passed := 0
	for _, c := range report.Checks {
		if c.Passed {
			passed++
		}
	}
	report.QualityScore = float64(passed) / float64(len(report.Checks))

	// A majority-missing target cannot be trained on regardless of the other
	// checks, so the score is floored to zero.
	if missingPct >= 50 {
		report.QualityScore = 0
	}
	return report, nil
}
