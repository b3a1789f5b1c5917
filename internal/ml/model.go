// Package ml implements the trust model: a regression learner that maps
// 10-feature vectors to trust scores in [0,100]. The concrete regressor is a
// random forest of CART regression trees; the Model interface keeps callers
// algorithm-agnostic.
package ml

import (
	"context"
	"errors"
)

// Sample is one labeled training observation.
type Sample struct {
	Features []float64
	Label    float64 // trust score in [0,100]
}

// Model is the trust model contract. Implementations must support many
// concurrent Predict callers and serialize Train/Restore against both
// readers and other writers.
type Model interface {
	// Train fits model parameters to the labeled samples, replacing any
	// prior fit. Returns ErrInvalidTrainingSet for empty or
	// shape-inconsistent input.
	Train(ctx context.Context, samples []Sample) error

	// Predict returns a score in [0,100] for a feature vector. Returns
	// ErrUntrained before the first successful Train or Restore.
	Predict(features []float64) (float64, error)

	// Persist serializes the trained parameters to an opaque blob.
	Persist() ([]byte, error)

	// Restore replaces the trained parameters from a Persist blob. The
	// restored model must reproduce bit-identical Predict outputs. On
	// failure the prior in-memory state is kept.
	Restore(data []byte) error

	// Name and Version identify the model in history records.
	Name() string
	Version() string
}

var (
	// ErrUntrained is returned by Predict before any successful training.
	ErrUntrained = errors.New("model not trained")

	// ErrInvalidTrainingSet is returned by Train for empty or
	// shape-mismatched sample sets.
	ErrInvalidTrainingSet = errors.New("invalid training set")
)
