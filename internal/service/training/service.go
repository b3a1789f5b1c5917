package training

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/metrics"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
)

// ModelStore persists trained model artifacts as opaque byte blobs.
type ModelStore interface {
	// Save writes the artifact, replacing any previous one.
	Save(ctx context.Context, data []byte) error
	// Load reads the current artifact. Returns ErrNoArtifact when none
	// has been saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Backup copies the current artifact aside and returns its location.
	Backup(ctx context.Context) (string, error)
	// Info describes the current artifact without loading it.
	Info(ctx context.Context) (ArtifactInfo, error)
}

// ErrNoArtifact is returned by ModelStore.Load when no model has been
// persisted yet.
var ErrNoArtifact = stderrors.New("no model artifact")

// ArtifactInfo describes a persisted model artifact.
type ArtifactInfo struct {
	Exists     bool      `json:"exists"`
	Path       string    `json:"path,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// TrainingResult summarizes one completed training run.
type TrainingResult struct {
	Samples      int           `json:"samples"`
	Duration     time.Duration `json:"duration"`
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	ModelPath    string        `json:"model_path,omitempty"`
	TrainedAt    time.Time     `json:"trained_at"`
}

// ModelInfo combines artifact and in-memory state for the admin surface.
type ModelInfo struct {
	Name     string       `json:"name"`
	Version  string       `json:"version"`
	Stats    ml.Stats     `json:"stats"`
	Artifact ArtifactInfo `json:"artifact"`
}

// Service trains the trust model on synthetic data and persists the result.
// Training is CPU-bound and long-running; callers route it to background
// work, never onto a latency-sensitive scoring path.
type Service struct {
	model   ml.Model
	store   ModelStore
	logger  *slog.Logger
	metrics *metrics.Registry
	seed    int64
}

func NewService(model ml.Model, store ModelStore, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		model:   model,
		store:   store,
		logger:  logger,
		metrics: reg,
		seed:    DefaultSeed,
	}
}

// Train generates n balanced synthetic samples, fits the model, and persists
// the new artifact. A failed fit leaves both the in-memory model and the
// stored artifact untouched.
func (s *Service) Train(ctx context.Context, n int) (*TrainingResult, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("INVALID_SAMPLE_COUNT", "sample count must be positive")
	}

	s.logger.InfoContext(ctx, "starting model training", "samples", n)
	start := time.Now()

	samples := NewGenerator(s.seed).Generate(n)
	if err := s.model.Train(ctx, TrainingSet(samples)); err != nil {
		if stderrors.Is(err, ml.ErrInvalidTrainingSet) {
			return nil, errors.NewInvalidTrainingSetError(err.Error())
		}
		return nil, errors.Wrap(err, "training model")
	}

	duration := time.Since(start)
	s.metrics.RecordTraining(ctx, n, duration)

	result := &TrainingResult{
		Samples:      n,
		Duration:     duration,
		ModelName:    s.model.Name(),
		ModelVersion: s.model.Version(),
		TrainedAt:    time.Now().UTC(),
	}

	blob, err := s.model.Persist()
	if err != nil {
		return nil, errors.NewPersistenceError("serializing trained model").WithCause(err)
	}
	if err := s.store.Save(ctx, blob); err != nil {
		return nil, errors.NewPersistenceError("saving model artifact").WithCause(err)
	}
	if info, err := s.store.Info(ctx); err == nil {
		result.ModelPath = info.Path
	}

	s.logger.InfoContext(ctx, "model training completed",
		"samples", n,
		"duration", duration,
		"model", result.ModelName,
	)
	return result, nil
}

// Restore loads the persisted artifact into the in-memory model, typically
// at process bootstrap. ErrNoArtifact passes through so the caller can
// decide whether a cold start trains from scratch.
func (s *Service) Restore(ctx context.Context) error {
	blob, err := s.store.Load(ctx)
	if err != nil {
		if stderrors.Is(err, ErrNoArtifact) {
			return err
		}
		return errors.NewPersistenceError("loading model artifact").WithCause(err)
	}
	if err := s.model.Restore(blob); err != nil {
		return errors.NewPersistenceError("restoring model state").WithCause(err)
	}
	s.logger.InfoContext(ctx, "model restored from artifact", "model", s.model.Name())
	return nil
}

// Backup copies the current artifact aside before a risky retrain.
func (s *Service) Backup(ctx context.Context) (string, error) {
	path, err := s.store.Backup(ctx)
	if err != nil {
		return "", errors.NewPersistenceError("backing up model artifact").WithCause(err)
	}
	return path, nil
}

// ModelInfo reports artifact and trained-state details.
func (s *Service) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	artifact, err := s.store.Info(ctx)
	if err != nil {
		return nil, errors.NewPersistenceError("reading model artifact info").WithCause(err)
	}

	info := &ModelInfo{
		Name:     s.model.Name(),
		Version:  s.model.Version(),
		Artifact: artifact,
	}
	if st, ok := s.model.(interface{ Stats() ml.Stats }); ok {
		info.Stats = st.Stats()
	}
	return info, nil
}
