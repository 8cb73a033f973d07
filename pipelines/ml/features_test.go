package ml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	records := make([][]string, n)
	for i := 0; i < n; i++ {
		records[i] = []string{fmt.Sprintf("%d", i+1)}
	}
	ds, err := FromRecords("csv", []string{"value"}, records)
	require.NoError(t, err)
	return ds
}

func TestFeatureFactory_Build(t *testing.T) {
	t.Run("splits are disjoint and sum to the cleaned row count", func(t *testing.T) {
		ds := valueDataset(t, 20)
		factory := NewFeatureFactory()

		fs, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)

		assert.Len(t, fs.TrainX, 14)
		assert.Len(t, fs.ValX, 2)
		assert.Len(t, fs.TestX, 4)
		assert.Equal(t, 20, len(fs.TrainX)+len(fs.ValX)+len(fs.TestX))
		assert.Equal(t, len(fs.TrainX), len(fs.TrainY))
		assert.Equal(t, len(fs.ValX), len(fs.ValY))
		assert.Equal(t, len(fs.TestX), len(fs.TestY))
	})

	t.Run("lag features are positional", func(t *testing.T) {
		ds := valueDataset(t, 20)
		factory := NewFeatureFactory()

		fs, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)

		// Lags are the first engineered columns when the input has no other
		// numeric columns.
		assert.Equal(t, "value_lag_1", fs.FeatureNames[0])
		assert.Equal(t, "value_lag_7", fs.FeatureNames[6])

		// Row i, lag k equals the target at row i-k; zero-filled for i < k.
		for i := 1; i < len(fs.TrainX); i++ {
			assert.Equal(t, fs.TrainY[i-1], fs.TrainX[i][0], "lag 1 at row %d", i)
		}
		for k := 0; k < 7; k++ {
			assert.Zero(t, fs.TrainX[0][k], "lag %d at row 0", k+1)
		}
		assert.Equal(t, fs.TrainY[0], fs.TrainX[3][2], "lag 3 at row 3")
	})

	t.Run("rolling statistics use partial windows", func(t *testing.T) {
		ds := valueDataset(t, 20)
		factory := &FeatureFactory{MaxLags: 1, WindowSizes: []int{3}}

		fs, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)
		require.Equal(t, []string{"value_lag_1", "value_roll_mean_3", "value_roll_std_3"}, fs.FeatureNames)

		// First row's window is just itself: mean = value, std = 0.
		assert.Equal(t, 1.0, fs.TrainX[0][1])
		assert.Equal(t, 0.0, fs.TrainX[0][2])
		// Full window at row 2: mean(1,2,3) = 2, sample std = 1.
		assert.InDelta(t, 2.0, fs.TrainX[2][1], 1e-12)
		assert.InDelta(t, 1.0, fs.TrainX[2][2], 1e-12)
	})

	t.Run("build is idempotent and never mutates the input", func(t *testing.T) {
		ds := valueDataset(t, 20)
		factory := NewFeatureFactory()

		first, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)
		second, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, []string{"value"}, ds.ColumnNames())
	})

	t.Run("calendar features and date sorting", func(t *testing.T) {
		// Dates supplied out of order; the factory must sort before lagging.
		header := []string{"date", "value"}
		records := [][]string{
			{"2024-01-06", "6"},
			{"2024-01-01", "1"},
			{"2024-01-07", "7"},
			{"2024-01-03", "3"},
			{"2024-01-02", "2"},
			{"2024-01-05", "5"},
			{"2024-01-04", "4"},
			{"2024-01-08", "8"},
			{"2024-01-09", "9"},
			{"2024-01-10", "10"},
		}
		ds, err := FromRecords("csv", header, records)
		require.NoError(t, err)

		factory := &FeatureFactory{MaxLags: 2, WindowSizes: []int{3}}
		fs, err := factory.Build(ds, "value", "date", "", 0.2, 0.1)
		require.NoError(t, err)

		assert.Contains(t, fs.FeatureNames, "day_of_week")
		assert.Contains(t, fs.FeatureNames, "is_weekend")
		assert.Contains(t, fs.FeatureNames, "month")

		// After sorting, targets run 1..10 so lag 1 at sorted row i is i.
		lagIdx := indexOf(t, fs.FeatureNames, "value_lag_1")
		for i := 1; i < len(fs.TrainX); i++ {
			assert.Equal(t, fs.TrainY[i-1], fs.TrainX[i][lagIdx])
		}
	})

	t.Run("rows with missing target are dropped", func(t *testing.T) {
		header := []string{"value"}
		records := [][]string{{"1"}, {""}, {"3"}, {""}, {"5"}, {"6"}, {"7"}, {"8"}, {"9"}, {"10"}}
		ds, err := FromRecords("csv", header, records)
		require.NoError(t, err)

		factory := &FeatureFactory{MaxLags: 1, WindowSizes: []int{3}}
		fs, err := factory.Build(ds, "value", "", "", 0.2, 0.1)
		require.NoError(t, err)
		assert.Equal(t, 8, len(fs.TrainX)+len(fs.ValX)+len(fs.TestX))
	})

	t.Run("missing target column", func(t *testing.T) {
		ds := valueDataset(t, 10)
		factory := NewFeatureFactory()

		_, err := factory.Build(ds, "nope", "", "", 0.2, 0.1)
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})

	t.Run("empty test partition yields nil test split", func(t *testing.T) {
		ds := valueDataset(t, 10)
		factory := &FeatureFactory{MaxLags: 1, WindowSizes: []int{3}}

		fs, err := factory.Build(ds, "value", "", "", 0, 0.1)
		require.NoError(t, err)
		assert.Nil(t, fs.TestX)
		assert.Nil(t, fs.TestY)
	})
}

func TestFeatureFactory_GroupedRolling(t *testing.T) {
	header := []string{"site", "value"}
	records := [][]string{
		{"A", "10"}, {"B", "100"},
		{"A", "20"}, {"B", "200"},
		{"A", "30"}, {"B", "300"},
		{"A", "40"}, {"B", "400"},
		{"A", "50"}, {"B", "500"},
	}
	ds, err := FromRecords("csv", header, records)
	require.NoError(t, err)

	factory := &FeatureFactory{MaxLags: 1, WindowSizes: []int{2}}
	fs, err := factory.Build(ds, "value", "", "site", 0, 0)
	require.NoError(t, err)

	meanIdx := indexOf(t, fs.FeatureNames, "value_roll_mean_2")

	// Site A's second observation (row index 2) averages only A values.
	assert.InDelta(t, 15.0, fs.TrainX[2][meanIdx], 1e-12)
	// Site B's second observation averages only B values.
	assert.InDelta(t, 150.0, fs.TrainX[3][meanIdx], 1e-12)
}

func indexOf(t *testing.T, names []string, want string) int {
	t.Helper()
	for i, n := range names {
		if n == want {
			return i
		}
	}
	t.Fatalf("feature %s not found in %v", want, names)
	return -1
}
