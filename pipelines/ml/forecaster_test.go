package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const daySeconds = 24 * 3600

func dailySeries(values []float64) *SeriesInput {
	ts := make([]int64, len(values))
	for i := range ts {
		ts[i] = int64(1700000000 + i*daySeconds)
	}
	return &SeriesInput{Timestamps: ts, Values: values}
}

func TestSeasonalForecaster(t *testing.T) {
	t.Run("fits a weekly pattern seasonally", func(t *testing.T) {
		weekly := []float64{10, 12, 14, 16, 14, 12, 10}
		values := make([]float64, 56)
		for i := range values {
			values[i] = weekly[i%7]
		}

		sf := NewSeasonalForecaster()
		require.NoError(t, sf.Fit(&TrainingInput{Series: dailySeries(values)}))

		assert.True(t, sf.Fitted)
		assert.False(t, sf.SeasonalityDisabled)
		assert.Equal(t, 7, sf.Period)

		fc, err := sf.Forecast(7)
		require.NoError(t, err)
		require.Len(t, fc.Forecast, 7)
		for i := range fc.Forecast {
			assert.LessOrEqual(t, fc.Lower[i], fc.Forecast[i])
			assert.GreaterOrEqual(t, fc.Upper[i], fc.Forecast[i])
			// A clean repeating pattern should be tracked closely.
			assert.InDelta(t, weekly[(56+i)%7], fc.Forecast[i], 1.5)
		}
	})

	t.Run("short series retries without seasonality", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5}

		sf := NewSeasonalForecaster()
		require.NoError(t, sf.Fit(&TrainingInput{Series: dailySeries(values)}))

		assert.True(t, sf.Fitted)
		assert.True(t, sf.SeasonalityDisabled)

		fc, err := sf.Forecast(3)
		require.NoError(t, err)
		// A perfect linear ramp extrapolates linearly.
		assert.InDelta(t, 6.0, fc.Forecast[0], 0.5)
	})

	t.Run("constant series yields a zero-width band", func(t *testing.T) {
		values := make([]float64, 30)
		for i := range values {
			values[i] = 10
		}

		sf := NewSeasonalForecaster()
		require.NoError(t, sf.Fit(&TrainingInput{Series: dailySeries(values)}))

		fc, err := sf.Forecast(5)
		require.NoError(t, err)
		for i := range fc.Forecast {
			assert.InDelta(t, 10.0, fc.Forecast[i], 1e-9)
			assert.InDelta(t, fc.Forecast[i], fc.Lower[i], 1e-9)
			assert.InDelta(t, fc.Forecast[i], fc.Upper[i], 1e-9)
		}
	})

	t.Run("too few observations", func(t *testing.T) {
		sf := NewSeasonalForecaster()
		err := sf.Fit(&TrainingInput{Series: dailySeries([]float64{1, 2})})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("predict is a zero-filled placeholder", func(t *testing.T) {
		sf := NewSeasonalForecaster()
		require.NoError(t, sf.Fit(&TrainingInput{Series: dailySeries([]float64{1, 2, 3, 4, 5})}))

		preds, err := sf.Predict([][]float64{{1}, {2}, {3}})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0}, preds)
	})

	t.Run("unfitted forecaster", func(t *testing.T) {
		sf := NewSeasonalForecaster()
		_, err := sf.Forecast(5)
		assert.ErrorIs(t, err, ErrModelUnavailable)
		_, err = sf.Predict([][]float64{{1}})
		assert.ErrorIs(t, err, ErrModelUnavailable)
	})

	t.Run("bands widen with distance", func(t *testing.T) {
		values := make([]float64, 40)
		for i := range values {
			values[i] = 10 + float64(i%7) + 0.3*float64(i%3)
		}
		sf := NewSeasonalForecaster()
		require.NoError(t, sf.Fit(&TrainingInput{Series: dailySeries(values)}))
		require.Greater(t, sf.ResidualStd, 0.0)

		fc, err := sf.Forecast(10)
		require.NoError(t, err)
		first := fc.Upper[0] - fc.Lower[0]
		last := fc.Upper[9] - fc.Lower[9]
		assert.Greater(t, last, first)
	})
}

func TestInferSeasonalPeriod(t *testing.T) {
	t.Run("daily data has a weekly cycle", func(t *testing.T) {
		ts := []int64{0, daySeconds, 2 * daySeconds, 3 * daySeconds}
		assert.Equal(t, 7, inferSeasonalPeriod(ts))
	})

	t.Run("hourly data has a daily cycle", func(t *testing.T) {
		ts := []int64{0, 3600, 7200, 10800}
		assert.Equal(t, 24, inferSeasonalPeriod(ts))
	})

	t.Run("weekly data has a monthly cycle", func(t *testing.T) {
		week := int64(7 * daySeconds)
		ts := []int64{0, week, 2 * week}
		assert.Equal(t, 4, inferSeasonalPeriod(ts))
	})

	t.Run("defaults without usable deltas", func(t *testing.T) {
		assert.Equal(t, 7, inferSeasonalPeriod(nil))
		assert.Equal(t, 7, inferSeasonalPeriod([]int64{5, 5, 5}))
	})
}

func TestResidualStd(t *testing.T) {
	assert.Zero(t, residualStd(nil))
	assert.Zero(t, residualStd([]float64{1}))
	assert.InDelta(t, math.Sqrt(2), residualStd([]float64{-1, 1}), 1e-9)
}
