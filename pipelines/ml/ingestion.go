package ml

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// IngestionEngine loads tabular files into a Dataset. Supported formats:
// CSV, Excel (.xlsx/.xls, first sheet), and column-oriented JSON (an object
// mapping column name to an array of values).
type IngestionEngine struct{}

// NewIngestionEngine creates an ingestion engine.
func NewIngestionEngine() *IngestionEngine {
	return &IngestionEngine{}
}

// LoadFromPath loads a file, dispatching on extension.
func (e *IngestionEngine) LoadFromPath(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("data file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return e.loadCSV(path)
	case ".xlsx", ".xls":
		return e.loadExcel(path)
	case ".json":
		return e.loadJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (e *IngestionEngine) loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV file %s is empty", ErrInsufficientData, path)
	}

	return FromRecords("csv", records[0], records[1:])
}

func (e *IngestionEngine) loadExcel(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrInsufficientData, path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrInsufficientData, sheets[0])
	}

	return FromRecords("excel", rows[0], rows[1:])
}

// loadJSON reads column-oriented JSON: {"col_a": [1, 2], "col_b": ["x", "y"]}.
// Arrays may have unequal lengths; short columns pad with nulls.
func (e *IngestionEngine) loadJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var columnar map[string][]any
	if err := json.Unmarshal(data, &columnar); err != nil {
		return nil, fmt.Errorf("failed to parse columnar JSON %s: %w", path, err)
	}
	if len(columnar) == 0 {
		return nil, fmt.Errorf("%w: JSON file %s has no columns", ErrInsufficientData, path)
	}

	header := make([]string, 0, len(columnar))
	for name := range columnar {
		header = append(header, name)
	}
	sort.Strings(header)

	rowCount := 0
	for _, values := range columnar {
		if len(values) > rowCount {
			rowCount = len(values)
		}
	}

	records := make([][]string, rowCount)
	for i := range records {
		rec := make([]string, len(header))
		for j, name := range header {
			values := columnar[name]
			if i >= len(values) || values[i] == nil {
				continue
			}
			switch v := values[i].(type) {
			case string:
				rec[j] = v
			case float64:
				rec[j] = formatFloatCell(v)
			case bool:
				rec[j] = fmt.Sprint(v)
			default:
				rec[j] = fmt.Sprint(v)
			}
		}
		records[i] = rec
	}

	return FromRecords("json", header, records)
}

func formatFloatCell(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// DataReport summarizes a loaded dataset for pre-training inspection.
type DataReport struct {
	Rows           int            `json:"rows"`
	Columns        int            `json:"columns"`
	MissingPercent map[string]float64 `json:"missing_percent"`
	DuplicateRows  int            `json:"duplicate_rows"`
	DateRangeStart time.Time      `json:"date_range_start,omitempty"`
	DateRangeEnd   time.Time      `json:"date_range_end,omitempty"`
}

// ValidateData computes basic quality statistics: per-column missing
// percentage, duplicate row count, and the date range when a datetime column
// exists.
func (e *IngestionEngine) ValidateData(ds *Dataset) *DataReport {
	report := &DataReport{
		Rows:           ds.RowCount(),
		Columns:        len(ds.Columns),
		MissingPercent: make(map[string]float64, len(ds.Columns)),
	}

	for _, col := range ds.Columns {
		if ds.RowCount() == 0 {
			report.MissingPercent[col.Name] = 0
			continue
		}
		missing := 0
		for _, row := range ds.Rows {
			if row[col.Name] == nil {
				missing++
			}
		}
		report.MissingPercent[col.Name] = 100 * float64(missing) / float64(ds.RowCount())
	}

	report.DuplicateRows = countDuplicateRows(ds)

	for _, col := range ds.Columns {
		if !col.IsDateTime {
			continue
		}
		times, err := ds.TimeColumn(col.Name)
		if err != nil {
			continue
		}
		for _, t := range times {
			if t.IsZero() {
				continue
			}
			if report.DateRangeStart.IsZero() || t.Before(report.DateRangeStart) {
				report.DateRangeStart = t
			}
			if t.After(report.DateRangeEnd) {
				report.DateRangeEnd = t
			}
		}
		break
	}

	return report
}

// countDuplicateRows counts rows whose full value tuple already appeared.
func countDuplicateRows(ds *Dataset) int {
	seen := make(map[string]bool, len(ds.Rows))
	dupes := 0
	for _, row := range ds.Rows {
		key := rowFingerprint(ds.Columns, row)
		if seen[key] {
			dupes++
		}
		seen[key] = true
	}
	return dupes
}

func rowFingerprint(cols []ColumnMeta, row map[string]any) string {
	var b strings.Builder
	for _, col := range cols {
		fmt.Fprintf(&b, "%v\x1f", row[col.Name])
	}
	return b.String()
}
