package ml

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Dataset is the tabular representation passed between all pipeline
// components: an ordered collection of named columns over a shared row set.
// Column order is insertion order and never changes after load; row order is
// mutable (sortable by date) but always consistent across columns.
type Dataset struct {
	Source    string           `json:"source"` // "csv", "excel", "json", "synthetic"
	Columns   []ColumnMeta     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	CreatedAt time.Time        `json:"created_at"`
}

// ColumnMeta describes a column's characteristics.
type ColumnMeta struct {
	Name       string `json:"name"`
	Index      int    `json:"index"`
	DataType   string `json:"data_type"` // "numeric", "string", "datetime", "mixed"
	IsNumeric  bool   `json:"is_numeric"`
	IsDateTime bool   `json:"is_datetime"`
	NullCount  int    `json:"null_count"`
}

// ColumnStats contains statistical information for a numeric column.
type ColumnStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// NewDataset creates an empty dataset for the given source tag.
func NewDataset(source string) *Dataset {
	return &Dataset{
		Source:    source,
		Columns:   []ColumnMeta{},
		Rows:      []map[string]any{},
		CreatedAt: time.Now(),
	}
}

// timeLayouts are the timestamp formats the pipeline accepts, probed in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// parseFloatValue coerces a cell value to float64. The second return value is
// false when the value is null or not numeric.
func parseFloatValue(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseTimeValue coerces a cell value to a timestamp. Unparseable values
// return a zero time and false rather than an error, so a handful of bad
// cells never fails a whole build.
func parseTimeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// FromRecords builds a dataset from a header row plus string records, the
// shape produced by the CSV and Excel readers. Column types are inferred from
// the values: a column is numeric (or datetime) when every non-empty cell
// parses as such.
func FromRecords(source string, header []string, records [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header row")
	}

	ds := NewDataset(source)
	ds.Rows = make([]map[string]any, 0, len(records))

	numericOK := make([]bool, len(header))
	datetimeOK := make([]bool, len(header))
	nonEmpty := make([]int, len(header))
	nullCount := make([]int, len(header))
	for i := range header {
		numericOK[i] = true
		datetimeOK[i] = true
	}

	for _, rec := range records {
		row := make(map[string]any, len(header))
		for i, name := range header {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			if cell == "" {
				row[name] = nil
				nullCount[i]++
				continue
			}
			nonEmpty[i]++
			if _, ok := parseFloatValue(cell); !ok {
				numericOK[i] = false
			}
			if _, ok := parseTimeValue(cell); !ok {
				datetimeOK[i] = false
			}
			row[name] = cell
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.Columns = make([]ColumnMeta, len(header))
	for i, name := range header {
		meta := ColumnMeta{
			Name:      name,
			Index:     i,
			DataType:  "string",
			NullCount: nullCount[i],
		}
		switch {
		case nonEmpty[i] > 0 && datetimeOK[i] && !numericOK[i]:
			meta.DataType = "datetime"
			meta.IsDateTime = true
		case nonEmpty[i] > 0 && numericOK[i]:
			meta.DataType = "numeric"
			meta.IsNumeric = true
		}
		ds.Columns[i] = meta
	}

	// Normalize numeric cells to float64 so downstream code never re-parses.
	for _, row := range ds.Rows {
		for _, col := range ds.Columns {
			if !col.IsNumeric {
				continue
			}
			if v, ok := parseFloatValue(row[col.Name]); ok {
				row[col.Name] = v
			}
		}
	}

	return ds, nil
}

// RowCount returns the number of rows.
func (ds *Dataset) RowCount() int { return len(ds.Rows) }

// ColumnNames returns column names in insertion order.
func (ds *Dataset) ColumnNames() []string {
	names := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (ds *Dataset) HasColumn(name string) bool {
	for _, c := range ds.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Column returns metadata for a named column.
func (ds *Dataset) Column(name string) (*ColumnMeta, error) {
	for i := range ds.Columns {
		if ds.Columns[i].Name == name {
			return &ds.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Copy returns a deep copy of the dataset. The feature factory works on
// copies so the caller's table is never mutated.
func (ds *Dataset) Copy() *Dataset {
	out := &Dataset{
		Source:    ds.Source,
		Columns:   append([]ColumnMeta(nil), ds.Columns...),
		Rows:      make([]map[string]any, len(ds.Rows)),
		CreatedAt: ds.CreatedAt,
	}
	for i, row := range ds.Rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Head returns a copy truncated to the first n rows.
func (ds *Dataset) Head(n int) *Dataset {
	out := ds.Copy()
	if n < len(out.Rows) {
		out.Rows = out.Rows[:n]
	}
	return out
}

// SortByDate sorts rows chronologically by the given date column, in place.
// Rows with unparseable dates sort first (zero time). The sort is stable so
// ties keep their original relative order.
func (ds *Dataset) SortByDate(dateCol string) error {
	if !ds.HasColumn(dateCol) {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, dateCol)
	}
	times := make([]time.Time, len(ds.Rows))
	for i, row := range ds.Rows {
		t, _ := parseTimeValue(row[dateCol])
		times[i] = t
	}
	idx := make([]int, len(ds.Rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return times[idx[a]].Before(times[idx[b]])
	})
	rows := make([]map[string]any, len(ds.Rows))
	for i, j := range idx {
		rows[i] = ds.Rows[j]
	}
	ds.Rows = rows
	return nil
}

// NumericColumn extracts a column as float64 values. Null or non-numeric
// cells become NaN so callers can apply their own missing-value policy.
func (ds *Dataset) NumericColumn(name string) ([]float64, error) {
	if !ds.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	values := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		if v, ok := parseFloatValue(row[name]); ok {
			values[i] = v
		} else {
			values[i] = math.NaN()
		}
	}
	return values, nil
}

// TimeColumn extracts a column as timestamps. Unparseable cells become the
// zero time.
func (ds *Dataset) TimeColumn(name string) ([]time.Time, error) {
	if !ds.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	values := make([]time.Time, len(ds.Rows))
	for i, row := range ds.Rows {
		t, _ := parseTimeValue(row[name])
		values[i] = t
	}
	return values, nil
}

// StringColumn extracts a column as strings. Null cells become "".
func (ds *Dataset) StringColumn(name string) ([]string, error) {
	if !ds.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	values := make([]string, len(ds.Rows))
	for i, row := range ds.Rows {
		switch v := row[name].(type) {
		case nil:
			values[i] = ""
		case string:
			values[i] = v
		default:
			values[i] = fmt.Sprint(v)
		}
	}
	return values, nil
}

// Stats computes summary statistics for a numeric column, skipping nulls.
func (ds *Dataset) Stats(name string) (*ColumnStats, error) {
	values, err := ds.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no numeric values in column %s", ErrInsufficientData, name)
	}
	mean, std := stat.MeanStdDev(clean, nil)
	if math.IsNaN(std) {
		std = 0
	}
	s := &ColumnStats{
		Min:    clean[0],
		Max:    clean[0],
		Mean:   mean,
		StdDev: std,
		Count:  len(clean),
	}
	for _, v := range clean {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s, nil
}

// Summary returns a human-readable description of the dataset.
func (ds *Dataset) Summary() string {
	out := fmt.Sprintf("Dataset from source '%s'\n", ds.Source)
	out += fmt.Sprintf("  Rows: %d\n  Columns: %d\n", len(ds.Rows), len(ds.Columns))
	for _, col := range ds.Columns {
		out += fmt.Sprintf("  - %s (%s)\n", col.Name, col.DataType)
	}
	return out
}
