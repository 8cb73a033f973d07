package ml

import (
	"fmt"
	"math"
)

// FeatureFactory derives a supervised-learning feature matrix from a tabular
// time series: calendar features from the date column, positional lags of the
// target, and rolling-window statistics (grouped per site when a site column
// exists).
type FeatureFactory struct {
	MaxLags     int   `json:"max_lags"`
	WindowSizes []int `json:"window_sizes"`
}

// NewFeatureFactory creates a factory with the default configuration:
// 7 lags and rolling windows of 3, 7, 14 and 30 observations.
func NewFeatureFactory() *FeatureFactory {
	return &FeatureFactory{
		MaxLags:     7,
		WindowSizes: []int{3, 7, 14, 30},
	}
}

// FeatureSet is the immutable output of a Build call: chronological
// train/validation/test partitions of the engineered matrix. TestX/TestY are
// nil when the test partition is empty.
type FeatureSet struct {
	TrainX       [][]float64 `json:"-"`
	TrainY       []float64   `json:"-"`
	ValX         [][]float64 `json:"-"`
	ValY         []float64   `json:"-"`
	TestX        [][]float64 `json:"-"`
	TestY        []float64   `json:"-"`
	FeatureNames []string    `json:"feature_names"`
}

// Build engineers features for the given target and splits the result
// chronologically. The input dataset is never mutated. testSize and valSize
// are fractions of the row count; callers passing fractions summing to 1 or
// more get an empty train split rather than an error.
//
// Lag features are positional in the table's row order, so the table is
// sorted by dateCol first when one is supplied. Without a date column the
// rows are used as-is and lag semantics are whatever the caller's order
// implies.
func (f *FeatureFactory) Build(ds *Dataset, target, dateCol, siteCol string, testSize, valSize float64) (*FeatureSet, error) {
	if !ds.HasColumn(target) {
		return nil, fmt.Errorf("target %w: %s", ErrColumnNotFound, target)
	}

	work := ds.Copy()

	// Drop rows with a missing target before anything else.
	kept := work.Rows[:0]
	for _, row := range work.Rows {
		if _, ok := parseFloatValue(row[target]); ok {
			kept = append(kept, row)
		}
	}
	work.Rows = kept

	haveDate := dateCol != "" && work.HasColumn(dateCol)
	haveSite := siteCol != "" && work.HasColumn(siteCol)

	if haveDate {
		f.addCalendarFeatures(work, dateCol)
		if err := work.SortByDate(dateCol); err != nil {
			return nil, err
		}
	}

	f.addLagFeatures(work, target)
	f.addRollingFeatures(work, target, siteCol, haveSite)

	// Feature columns are every numeric column except the target itself and
	// the date/site axes.
	var featureNames []string
	for _, col := range work.Columns {
		if !col.IsNumeric {
			continue
		}
		if col.Name == target || col.Name == dateCol || col.Name == siteCol {
			continue
		}
		featureNames = append(featureNames, col.Name)
	}

	// Zero-fill missing feature values. Fixed policy, not an imputation model.
	n := len(work.Rows)
	x := make([][]float64, n)
	y := make([]float64, n)
	for i, row := range work.Rows {
		vec := make([]float64, len(featureNames))
		for j, name := range featureNames {
			if v, ok := parseFloatValue(row[name]); ok && !math.IsNaN(v) {
				vec[j] = v
			}
		}
		x[i] = vec
		y[i], _ = parseFloatValue(row[target])
	}

	trainEnd := int(float64(n) * (1 - testSize - valSize))
	valEnd := int(float64(n) * (1 - testSize))
	if trainEnd < 0 {
		trainEnd = 0
	}
	if valEnd < trainEnd {
		valEnd = trainEnd
	}
	if valEnd > n {
		valEnd = n
	}

	fs := &FeatureSet{
		TrainX:       x[:trainEnd],
		TrainY:       y[:trainEnd],
		ValX:         x[trainEnd:valEnd],
		ValY:         y[trainEnd:valEnd],
		FeatureNames: featureNames,
	}
	if valEnd < n {
		fs.TestX = x[valEnd:]
		fs.TestY = y[valEnd:]
	}
	return fs, nil
}

// calendar feature names, in the order they are appended.
var calendarFeatures = []string{"hour", "day_of_week", "day_of_month", "month", "quarter", "is_weekend"}

// addCalendarFeatures derives time components from the date column.
// Unparseable timestamps yield null calendar values (zero-filled later).
func (f *FeatureFactory) addCalendarFeatures(ds *Dataset, dateCol string) {
	for _, row := range ds.Rows {
		t, ok := parseTimeValue(row[dateCol])
		if !ok {
			for _, name := range calendarFeatures {
				row[name] = nil
			}
			continue
		}
		row["hour"] = float64(t.Hour())
		row["day_of_week"] = float64(t.Weekday())
		row["day_of_month"] = float64(t.Day())
		row["month"] = float64(t.Month())
		row["quarter"] = float64((int(t.Month())-1)/3 + 1)
		if wd := t.Weekday(); wd == 0 || wd == 6 {
			row["is_weekend"] = 1.0
		} else {
			row["is_weekend"] = 0.0
		}
	}
	for _, name := range calendarFeatures {
		appendNumericColumn(ds, name)
	}
}

// addLagFeatures appends {target}_lag_{k} columns for k in
// 1..min(MaxLags, rowCount-1). Lags are positional in the current row order.
func (f *FeatureFactory) addLagFeatures(ds *Dataset, target string) {
	n := len(ds.Rows)
	maxLag := f.MaxLags
	if n-1 < maxLag {
		maxLag = n - 1
	}
	for lag := 1; lag <= maxLag; lag++ {
		name := fmt.Sprintf("%s_lag_%d", target, lag)
		for i, row := range ds.Rows {
			if i < lag {
				row[name] = nil
				continue
			}
			if v, ok := parseFloatValue(ds.Rows[i-lag][target]); ok {
				row[name] = v
			} else {
				row[name] = nil
			}
		}
		appendNumericColumn(ds, name)
	}
}

// addRollingFeatures appends {target}_roll_mean_{w} and {target}_roll_std_{w}
// columns for each window size. Windows are trailing and partial windows are
// allowed down to a single observation, whose std is 0. When grouped, each
// site's rows form an independent series in their current order.
func (f *FeatureFactory) addRollingFeatures(ds *Dataset, target, siteCol string, grouped bool) {
	// Row indexes per group, preserving order.
	groups := [][]int{}
	if grouped {
		byKey := map[string][]int{}
		var order []string
		for i, row := range ds.Rows {
			key := fmt.Sprint(row[siteCol])
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = append(byKey[key], i)
		}
		for _, key := range order {
			groups = append(groups, byKey[key])
		}
	} else {
		all := make([]int, len(ds.Rows))
		for i := range all {
			all[i] = i
		}
		groups = append(groups, all)
	}

	for _, w := range f.WindowSizes {
		meanName := fmt.Sprintf("%s_roll_mean_%d", target, w)
		stdName := fmt.Sprintf("%s_roll_std_%d", target, w)

		for _, idxs := range groups {
			values := make([]float64, len(idxs))
			valid := make([]bool, len(idxs))
			for pos, i := range idxs {
				values[pos], valid[pos] = parseFloatValue(ds.Rows[i][target])
			}
			for pos, i := range idxs {
				start := pos - w + 1
				if start < 0 {
					start = 0
				}
				var window []float64
				for p := start; p <= pos; p++ {
					if valid[p] {
						window = append(window, values[p])
					}
				}
				if len(window) == 0 {
					ds.Rows[i][meanName] = nil
					ds.Rows[i][stdName] = nil
					continue
				}
				ds.Rows[i][meanName] = meanOf(window)
				ds.Rows[i][stdName] = sampleStd(window)
			}
		}

		appendNumericColumn(ds, meanName)
		appendNumericColumn(ds, stdName)
	}
}

func appendNumericColumn(ds *Dataset, name string) {
	if ds.HasColumn(name) {
		return
	}
	ds.Columns = append(ds.Columns, ColumnMeta{
		Name:      name,
		Index:     len(ds.Columns),
		DataType:  "numeric",
		IsNumeric: true,
	})
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 denominator standard deviation; a single observation
// yields 0 rather than NaN.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := meanOf(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
