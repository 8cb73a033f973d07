package ml

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunHistory records completed training runs in a SQLite database so
// scheduled retraining leaves an auditable trail.
type RunHistory struct {
	db *sql.DB
}

// RunRecord is one stored training run.
type RunRecord struct {
	ID        string                        `json:"id"`
	CreatedAt time.Time                     `json:"created_at"`
	Target    string                        `json:"target"`
	Rows      int                           `json:"rows"`
	BestModel string                        `json:"best_model"`
	Metrics   map[string]map[string]float64 `json:"metrics"`
}

// NewRunHistory opens (creating if needed) the history database at path.
func NewRunHistory(path string) (*RunHistory, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	h := &RunHistory{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *RunHistory) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS training_runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			target TEXT NOT NULL,
			rows INTEGER NOT NULL,
			best_model TEXT NOT NULL,
			metrics TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_training_runs_created_at
			ON training_runs(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// Record stores one completed run and returns its id. Non-finite metric
// values (the sentinels of failed models) are encoded as JSON nulls.
func (h *RunHistory) Record(result *TrainResult, target string, rows int) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil result")
	}

	metrics := make(map[string]map[string]*float64, len(result.Metrics))
	for key, m := range result.Metrics {
		if m == nil {
			continue
		}
		entry := make(map[string]*float64)
		for name, v := range m.AsMap() {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				entry[name] = nil
				continue
			}
			value := v
			entry[name] = &value
		}
		metrics[key] = entry
	}
	blob, err := json.Marshal(metrics)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run metrics: %w", err)
	}

	id := uuid.New().String()
	_, err = h.db.Exec(
		`INSERT INTO training_runs (id, created_at, target, rows, best_model, metrics)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), target, rows, result.BestModelKey, string(blob),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record training run: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first. Metric values stored as
// null (failed models) come back as +Inf so callers see the same sentinels
// the orchestrator produced.
func (h *RunHistory) List(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(
		`SELECT id, created_at, target, rows, best_model, metrics
		 FROM training_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var blob string
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Target, &rec.Rows, &rec.BestModel, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}

		var raw map[string]map[string]*float64
		if err := json.Unmarshal([]byte(blob), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse metrics for run %s: %w", rec.ID, err)
		}
		rec.Metrics = make(map[string]map[string]float64, len(raw))
		for key, entry := range raw {
			out := make(map[string]float64, len(entry))
			for name, v := range entry {
				if v == nil {
					out[name] = math.Inf(1)
				} else {
					out[name] = *v
				}
			}
			rec.Metrics[key] = out
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the underlying database handle.
func (h *RunHistory) Close() error {
	return h.db.Close()
}
