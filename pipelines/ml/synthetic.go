package ml

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"
)

// SyntheticOptions controls the sample data generator.
type SyntheticOptions struct {
	Sites int
	Days  int
	Seed  int64
	Start time.Time
}

// DefaultSyntheticOptions mirrors the shipped sample dataset: two plants,
// one year of daily observations.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Sites: 2,
		Days:  365,
		Seed:  42,
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// syntheticColumns is the generated column set, in output order.
var syntheticColumns = []string{
	"date", "site_id",
	"influent_bod", "influent_cod", "influent_tss",
	"effluent_bod", "effluent_cod", "effluent_tss",
	"nh4", "no3", "po4",
	"flow_m3d", "temperature_c", "energy_kwh",
}

// GenerateSyntheticData produces a multi-site daily wastewater quality
// dataset with annual seasonality, weekday load effects, and noise.
// Deterministic for a fixed seed.
func GenerateSyntheticData(opts SyntheticOptions) *Dataset {
	if opts.Sites <= 0 {
		opts.Sites = 2
	}
	if opts.Days <= 0 {
		opts.Days = 365
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	ds := NewDataset("synthetic")
	ds.Columns = make([]ColumnMeta, len(syntheticColumns))
	for i, name := range syntheticColumns {
		meta := ColumnMeta{Name: name, Index: i, DataType: "numeric", IsNumeric: true}
		switch name {
		case "date":
			meta.DataType = "datetime"
			meta.IsDateTime = true
			meta.IsNumeric = false
		case "site_id":
			meta.DataType = "string"
			meta.IsNumeric = false
		}
		ds.Columns[i] = meta
	}

	for site := 0; site < opts.Sites; site++ {
		siteID := fmt.Sprintf("WWTP_%02d", site+1)
		// Per-site baseline offsets so plants differ.
		siteScale := 1 + 0.15*float64(site)

		for day := 0; day < opts.Days; day++ {
			date := opts.Start.AddDate(0, 0, day)
			season := math.Sin(2 * math.Pi * float64(day) / 365)
			weekend := 0.0
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				weekend = 1
			}

			influentBOD := siteScale * (220 + 30*season - 15*weekend + rng.NormFloat64()*12)
			influentCOD := influentBOD*2.1 + rng.NormFloat64()*20
			influentTSS := siteScale * (180 + 25*season + rng.NormFloat64()*15)

			// Treatment removes most of the load; efficiency drifts with
			// temperature.
			temperature := 14 + 8*season + rng.NormFloat64()*1.5
			removal := 0.90 + 0.02*season + rng.NormFloat64()*0.01

			row := map[string]any{
				"date":          date.Format("2006-01-02"),
				"site_id":       siteID,
				"influent_bod":  round2(influentBOD),
				"influent_cod":  round2(influentCOD),
				"influent_tss":  round2(influentTSS),
				"effluent_bod":  round2(positive(influentBOD * (1 - removal))),
				"effluent_cod":  round2(positive(influentCOD * (1 - removal*0.95))),
				"effluent_tss":  round2(positive(influentTSS * (1 - removal*1.02))),
				"nh4":           round2(positive(siteScale * (28 + 6*season + rng.NormFloat64()*3))),
				"no3":           round2(positive(8 + 2*season + rng.NormFloat64()*1.2)),
				"po4":           round2(positive(6 + 1.5*season + rng.NormFloat64()*0.8)),
				"flow_m3d":      round2(siteScale * (12000 + 2000*season + 800*weekend + rng.NormFloat64()*500)),
				"temperature_c": round2(temperature),
				"energy_kwh":    round2(siteScale * (9500 + 1200*season + rng.NormFloat64()*400)),
			}
			ds.Rows = append(ds.Rows, row)
		}
	}

	return ds
}

// WriteSyntheticCSV generates a dataset and writes it as CSV.
func WriteSyntheticCSV(path string, opts SyntheticOptions) error {
	ds := GenerateSyntheticData(opts)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sample file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(syntheticColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range ds.Rows {
		rec := make([]string, len(syntheticColumns))
		for i, name := range syntheticColumns {
			switch v := row[name].(type) {
			case string:
				rec[i] = v
			case float64:
				rec[i] = fmt.Sprintf("%.2f", v)
			default:
				rec[i] = fmt.Sprint(v)
			}
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
