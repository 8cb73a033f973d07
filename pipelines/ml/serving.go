package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// ServingLayer persists trained models in a directory registry and serves
// predictions and forecasts from them. Each saved model is a JSON blob
// (<name>.model.json) plus a metadata sidecar (<name>_metadata.json) whose
// kind field drives concrete-type dispatch on load.
type ServingLayer struct {
	RegistryPath string
}

// NewServingLayer creates a serving layer rooted at registryPath, creating
// the directory if needed.
func NewServingLayer(registryPath string) (*ServingLayer, error) {
	if err := os.MkdirAll(registryPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	return &ServingLayer{RegistryPath: registryPath}, nil
}

// modelMetadata is the sidecar written next to each model blob.
type modelMetadata struct {
	Kind       string         `json:"kind"`
	StorageKey string         `json:"storage_key"`
	SavedAt    time.Time      `json:"saved_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Save persists a model under name and returns its storage key.
func (s *ServingLayer) Save(model Model, name string, metadata map[string]any) (string, error) {
	if model == nil {
		return "", fmt.Errorf("%w: cannot save nil model", ErrModelUnavailable)
	}

	blob, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal model %s: %w", name, err)
	}
	if err := os.WriteFile(s.modelPath(name), blob, 0644); err != nil {
		return "", fmt.Errorf("failed to write model file: %w", err)
	}

	meta := modelMetadata{
		Kind:       model.Kind(),
		StorageKey: uuid.New().String(),
		SavedAt:    time.Now().UTC(),
		Metadata:   metadata,
	}
	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata for %s: %w", name, err)
	}
	if err := os.WriteFile(s.metadataPath(name), sidecar, 0644); err != nil {
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}

	return meta.StorageKey, nil
}

// Load restores a model by name. An unknown name returns (nil, nil).
func (s *ServingLayer) Load(name string) (Model, error) {
	sidecar, err := os.ReadFile(s.metadataPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata for %s: %w", name, err)
	}

	var meta modelMetadata
	if err := json.Unmarshal(sidecar, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", name, err)
	}

	blob, err := os.ReadFile(s.modelPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read model blob for %s: %w", name, err)
	}

	var model Model
	switch meta.Kind {
	case KindGradientBoosting:
		model = &GradientBoostingRegressor{}
	case KindRandomForest:
		model = &RandomForestRegressor{}
	case KindHoltWinters:
		model = &SeasonalForecaster{}
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", ErrModelUnavailable, meta.Kind)
	}

	if err := json.Unmarshal(blob, model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s model %s: %w", meta.Kind, name, err)
	}
	return model, nil
}

// Predict runs point predictions through a model.
func (s *ServingLayer) Predict(model Model, X [][]float64) ([]float64, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrModelUnavailable)
	}
	return model.Predict(X)
}

// Forecast produces horizon forecasts with bounds. Models with a native
// forecast capability are delegated to verbatim; for the rest a symmetric
// 95% band is synthesized as predict ± 1.96·std(predictions), degenerating
// to ±10% of the value when only a single prediction is available. The
// synthesized band is a heuristic, not a calibrated interval.
func (s *ServingLayer) Forecast(model Model, X [][]float64, horizon int) (*ForecastResult, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrModelUnavailable)
	}

	if fc, ok := model.(Forecaster); ok {
		return fc.Forecast(horizon)
	}

	preds, err := model.Predict(X)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("%w: no predictions to forecast from", ErrInsufficientData)
	}

	result := &ForecastResult{
		Forecast: preds,
		Lower:    make([]float64, len(preds)),
		Upper:    make([]float64, len(preds)),
	}

	if len(preds) == 1 {
		margin := 0.10 * math.Abs(preds[0])
		result.Lower[0] = preds[0] - margin
		result.Upper[0] = preds[0] + margin
		return result, nil
	}

	std := stat.StdDev(preds, nil)
	if math.IsNaN(std) {
		std = 0
	}
	margin := 1.96 * std
	for i, p := range preds {
		result.Lower[i] = p - margin
		result.Upper[i] = p + margin
	}
	return result, nil
}

// List returns the saved model names in sorted order.
func (s *ServingLayer) List() ([]string, error) {
	entries, err := os.ReadDir(s.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), "_metadata.json"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *ServingLayer) modelPath(name string) string {
	return filepath.Join(s.RegistryPath, name+".model.json")
}

func (s *ServingLayer) metadataPath(name string) string {
	return filepath.Join(s.RegistryPath, name+"_metadata.json")
}
