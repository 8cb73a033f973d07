package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SeasonalForecaster is an additive Holt-Winters (triple exponential
// smoothing) model over a raw (timestamp, value) series. The seasonal period
// is inferred from the median sampling interval when not set. If the series
// is too short to support the seasonal component, Fit retries once with
// seasonality disabled, falling back to Holt's linear (double) smoothing.
type SeasonalForecaster struct {
	Alpha  float64 `json:"alpha"`
	Beta   float64 `json:"beta"`
	Gamma  float64 `json:"gamma"`
	Period int     `json:"period"` // 0 means infer from timestamps

	SeasonalityDisabled bool      `json:"seasonality_disabled"`
	Level               float64   `json:"level"`
	Trend               float64   `json:"trend"`
	Seasonals           []float64 `json:"seasonals,omitempty"`
	ResidualStd         float64   `json:"residual_std"`
	NumObservations     int       `json:"num_observations"`
	Fitted              bool      `json:"fitted"`
}

// NewSeasonalForecaster creates a forecaster that grid-searches its
// smoothing parameters during Fit and infers the seasonal period.
func NewSeasonalForecaster() *SeasonalForecaster {
	return &SeasonalForecaster{}
}

// Kind implements Model.
func (sf *SeasonalForecaster) Kind() string { return KindHoltWinters }

// InputKind implements Model.
func (sf *SeasonalForecaster) InputKind() InputKind { return RawSeries }

// Fit trains on in.Series, replacing any previously trained state.
func (sf *SeasonalForecaster) Fit(in *TrainingInput) error {
	if in == nil || in.Series == nil || len(in.Series.Values) == 0 {
		return fmt.Errorf("%w: no series provided", ErrInsufficientData)
	}
	values := in.Series.Values
	if len(values) < 3 {
		return fmt.Errorf("%w: series has %d observations, need at least 3", ErrInsufficientData, len(values))
	}

	sf.Fitted = false
	sf.SeasonalityDisabled = false

	period := sf.Period
	if period <= 0 {
		period = inferSeasonalPeriod(in.Series.Timestamps)
	}

	// Seasonal initialization needs two full cycles. One retry without the
	// seasonal component before giving up.
	if len(values) >= 2*period {
		if err := sf.fitSeasonal(values, period); err == nil {
			sf.Fitted = true
			sf.NumObservations = len(values)
			return nil
		}
	}

	sf.SeasonalityDisabled = true
	sf.Seasonals = nil
	if err := sf.fitLinear(values); err != nil {
		return err
	}
	sf.Fitted = true
	sf.NumObservations = len(values)
	return nil
}

// inferSeasonalPeriod maps the median sampling interval to a cycle length:
// hourly data has a daily cycle (24), daily data a weekly cycle (7), weekly
// data a monthly cycle (4). Anything else defaults to 7.
func inferSeasonalPeriod(timestamps []int64) int {
	if len(timestamps) < 2 {
		return 7
	}
	deltas := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		d := float64(timestamps[i] - timestamps[i-1])
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 7
	}
	sort.Float64s(deltas)
	median := deltas[len(deltas)/2]

	const (
		hour = 3600
		day  = 24 * hour
		week = 7 * day
	)
	switch {
	case median <= 2*hour:
		return 24
	case median <= 2*day:
		return 7
	case median <= 2*week:
		return 4
	default:
		return 7
	}
}

// fitSeasonal runs additive triple exponential smoothing with a coarse grid
// search over the smoothing parameters, keeping the combination with the
// lowest one-step-ahead squared error.
func (sf *SeasonalForecaster) fitSeasonal(values []float64, period int) error {
	grid := []float64{0.1, 0.3, 0.5, 0.7, 0.9}

	bestSSE := math.Inf(1)
	var bestState *hwState
	var bestAlpha, bestBeta, bestGamma float64

	for _, alpha := range grid {
		for _, beta := range grid {
			for _, gamma := range grid {
				state, sse := runHoltWinters(values, period, alpha, beta, gamma)
				if state == nil {
					continue
				}
				if sse < bestSSE {
					bestSSE = sse
					bestState = state
					bestAlpha, bestBeta, bestGamma = alpha, beta, gamma
				}
			}
		}
	}

	if bestState == nil {
		return fmt.Errorf("%w: seasonal fit failed for period %d", ErrInsufficientData, period)
	}

	sf.Alpha, sf.Beta, sf.Gamma = bestAlpha, bestBeta, bestGamma
	sf.Period = period
	sf.Level = bestState.level
	sf.Trend = bestState.trend
	sf.Seasonals = bestState.seasonals
	sf.ResidualStd = residualStd(bestState.residuals)
	return nil
}

// fitLinear runs Holt's double exponential smoothing, grid-searching alpha
// and beta.
func (sf *SeasonalForecaster) fitLinear(values []float64) error {
	grid := []float64{0.1, 0.3, 0.5, 0.7, 0.9}

	bestSSE := math.Inf(1)
	found := false

	for _, alpha := range grid {
		for _, beta := range grid {
			level := values[0]
			trend := values[1] - values[0]
			sse := 0.0
			residuals := make([]float64, 0, len(values)-1)

			for t := 1; t < len(values); t++ {
				pred := level + trend
				resid := values[t] - pred
				sse += resid * resid
				residuals = append(residuals, resid)

				newLevel := alpha*values[t] + (1-alpha)*(level+trend)
				trend = beta*(newLevel-level) + (1-beta)*trend
				level = newLevel
			}

			if sse < bestSSE {
				bestSSE = sse
				sf.Alpha, sf.Beta = alpha, beta
				sf.Level, sf.Trend = level, trend
				sf.ResidualStd = residualStd(residuals)
				found = true
			}
		}
	}

	if !found {
		return fmt.Errorf("%w: linear fit failed", ErrInsufficientData)
	}
	return nil
}

type hwState struct {
	level     float64
	trend     float64
	seasonals []float64
	residuals []float64
}

// runHoltWinters performs one full additive smoothing pass and returns the
// final state plus the sum of squared one-step errors.
func runHoltWinters(values []float64, period int, alpha, beta, gamma float64) (*hwState, float64) {
	n := len(values)
	if n < 2*period {
		return nil, 0
	}

	// Initial level is the first cycle's mean; initial trend the average
	// cross-cycle change; initial seasonals the deviations from the cycle
	// mean, normalized to sum to zero.
	firstCycle := values[:period]
	level := meanOf(firstCycle)

	trend := 0.0
	for i := 0; i < period; i++ {
		trend += (values[period+i] - values[i]) / float64(period)
	}
	trend /= float64(period)

	seasonals := make([]float64, period)
	cycles := n / period
	for i := 0; i < period; i++ {
		sum := 0.0
		for c := 0; c < cycles; c++ {
			cycleMean := meanOf(values[c*period : (c+1)*period])
			sum += values[c*period+i] - cycleMean
		}
		seasonals[i] = sum / float64(cycles)
	}
	var seasonalSum float64
	for _, s := range seasonals {
		seasonalSum += s
	}
	adjust := seasonalSum / float64(period)
	for i := range seasonals {
		seasonals[i] -= adjust
	}

	sse := 0.0
	residuals := make([]float64, 0, n-period)
	for t := period; t < n; t++ {
		si := t % period
		pred := level + trend + seasonals[si]
		resid := values[t] - pred
		sse += resid * resid
		residuals = append(residuals, resid)

		newLevel := alpha*(values[t]-seasonals[si]) + (1-alpha)*(level+trend)
		trend = beta*(newLevel-level) + (1-beta)*trend
		seasonals[si] = gamma*(values[t]-newLevel) + (1-gamma)*seasonals[si]
		level = newLevel
	}

	return &hwState{level: level, trend: trend, seasonals: seasonals, residuals: residuals}, sse
}

func residualStd(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	std := stat.StdDev(residuals, nil)
	if math.IsNaN(std) {
		return 0
	}
	return std
}

// Predict implements Model. Feature matrices are not meaningful for a
// univariate forecaster, so this returns a zero-filled placeholder of the
// requested length. Forecast is the real prediction path.
func (sf *SeasonalForecaster) Predict(X [][]float64) ([]float64, error) {
	if !sf.Fitted {
		return nil, fmt.Errorf("%w: forecaster not fitted", ErrModelUnavailable)
	}
	return make([]float64, len(X)), nil
}

// Forecast implements Forecaster: extends the series by horizon periods with
// 1.96·residual-std bands that widen with forecast distance.
func (sf *SeasonalForecaster) Forecast(horizon int) (*ForecastResult, error) {
	if !sf.Fitted {
		return nil, fmt.Errorf("%w: forecaster not fitted", ErrModelUnavailable)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	result := &ForecastResult{
		Forecast: make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
	}

	for h := 1; h <= horizon; h++ {
		point := sf.Level + float64(h)*sf.Trend
		if !sf.SeasonalityDisabled && len(sf.Seasonals) > 0 {
			point += sf.Seasonals[(sf.NumObservations+h-1)%len(sf.Seasonals)]
		}

		margin := 1.96 * sf.ResidualStd * math.Sqrt(1+0.1*float64(h))
		result.Forecast[h-1] = point
		result.Lower[h-1] = point - margin
		result.Upper[h-1] = point + margin
	}

	return result, nil
}
