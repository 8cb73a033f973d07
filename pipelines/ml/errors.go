package ml

import "errors"

// Sentinel errors shared across the pipeline. Callers match with errors.Is.
var (
	// ErrColumnNotFound indicates a required column is absent from a dataset.
	ErrColumnNotFound = errors.New("column not found")

	// ErrUnsupportedFormat indicates the ingestion engine cannot parse a file
	// with the given extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInsufficientData indicates there is not enough valid data to carry
	// out an operation (empty split after cleaning, or metric computation
	// over zero valid pairs).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelUnavailable indicates a model backend is unavailable or its
	// training failed. Non-fatal at orchestrator level: the model is degraded
	// to a nil entry with sentinel metrics.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrLowDataQuality indicates the pre-training quality gate rejected the
	// dataset. Fatal for the whole training run.
	ErrLowDataQuality = errors.New("data quality below threshold")
)
