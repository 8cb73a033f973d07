package ml

import "strings"

// Schema is the detector's advisory view of a dataset: which columns look
// like the time axis, the site identifier, and candidate prediction targets.
// Callers may override any field before training.
type Schema struct {
	DateColumn         string   `json:"date_column"`
	SiteColumn         string   `json:"site_column"`
	TargetColumns      []string `json:"target_columns"`
	FeatureColumns     []string `json:"feature_columns"`
	NumericColumns     []string `json:"numeric_columns"`
	CategoricalColumns []string `json:"categorical_columns"`
}

// dateNameHints flag likely time-axis columns by name.
var dateNameHints = []string{"date", "time", "timestamp", "datetime"}

// siteNameHints flag likely site/plant identifier columns by name.
var siteNameHints = []string{"site", "station", "location", "plant"}

// targetKeywords are water-quality parameter names commonly used as
// prediction targets.
var targetKeywords = []string{"bod", "cod", "tss", "nh4", "no3", "po4"}

// DetectSchema inspects column names and values to classify a dataset's
// columns. Heuristics only: a date column is one whose name contains a date
// hint or whose first values parse as timestamps; a site column is a string
// column with a site hint in its name; targets are numeric columns whose
// names contain a water-quality keyword.
func DetectSchema(ds *Dataset) *Schema {
	schema := &Schema{}

	for _, col := range ds.Columns {
		lower := strings.ToLower(col.Name)

		if schema.DateColumn == "" && looksLikeDate(ds, col, lower) {
			schema.DateColumn = col.Name
			continue
		}

		if col.IsNumeric {
			schema.NumericColumns = append(schema.NumericColumns, col.Name)
			continue
		}

		schema.CategoricalColumns = append(schema.CategoricalColumns, col.Name)
		if schema.SiteColumn == "" && containsAny(lower, siteNameHints) {
			schema.SiteColumn = col.Name
		}
	}

	for _, name := range schema.NumericColumns {
		if containsAny(strings.ToLower(name), targetKeywords) {
			schema.TargetColumns = append(schema.TargetColumns, name)
		} else {
			schema.FeatureColumns = append(schema.FeatureColumns, name)
		}
	}

	return schema
}

// looksLikeDate checks the column name against the date hints and, for
// string columns, probes up to 100 values with the timestamp parser.
func looksLikeDate(ds *Dataset, col ColumnMeta, lowerName string) bool {
	if col.IsNumeric {
		return false
	}
	if col.IsDateTime {
		return true
	}
	if !containsAny(lowerName, dateNameHints) {
		return false
	}

	probe := len(ds.Rows)
	if probe > 100 {
		probe = 100
	}
	parsed := 0
	nonEmpty := 0
	for i := 0; i < probe; i++ {
		v := ds.Rows[i][col.Name]
		if v == nil {
			continue
		}
		nonEmpty++
		if _, ok := parseTimeValue(v); ok {
			parsed++
		}
	}
	return nonEmpty > 0 && parsed*2 >= nonEmpty
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
