// Package scoring orchestrates trust score computation: it pulls a user's
// recent signals, runs feature extraction and model prediction, classifies
// the score, and fans the result out to history, cache, and the user record.
package scoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/metrics"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/features"
)

const (
	defaultEventLookback = 30 * 24 * time.Hour
	defaultParallelism   = 8
)

// Result is the outcome of scoring one user.
type Result struct {
	UserID       uuid.UUID             `json:"user_id"`
	Score        float64               `json:"score"`
	Level        values.RiskLevel      `json:"risk_level"`
	Decision     values.AccessDecision `json:"decision"`
	Confidence   float64               `json:"confidence"`
	ModelName    string                `json:"model_name"`
	ModelVersion string                `json:"model_version"`
	CalculatedAt time.Time             `json:"calculated_at"`
}

// BatchResult summarizes one scoreAll pass.
type BatchResult struct {
	Scored   int           `json:"scored"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Service computes trust scores for users. Per-user failures during a batch
// pass are logged and skipped rather than aborting the pass.
type Service struct {
	users     UserRepository
	devices   DeviceRepository
	events    EventRepository
	history   HistoryRepository
	cache     ScoreCache
	model     Predictor
	extractor *features.Extractor
	logger    *slog.Logger
	metrics   *metrics.Registry

	lookback    time.Duration
	parallelism int
}

// Option configures a Service.
type Option func(*Service)

// WithEventLookback sets how far back access events are fetched for extraction.
func WithEventLookback(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookback = d
		}
	}
}

// WithParallelism bounds concurrent per-user scoring during a batch pass.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// NewService creates the scoring orchestrator. The cache may be nil.
func NewService(
	users UserRepository,
	devices DeviceRepository,
	events EventRepository,
	history HistoryRepository,
	cache ScoreCache,
	model Predictor,
	logger *slog.Logger,
	reg *metrics.Registry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		users:       users,
		devices:     devices,
		events:      events,
		history:     history,
		cache:       cache,
		model:       model,
		extractor:   features.NewExtractor(nil),
		logger:      logger,
		metrics:     reg,
		lookback:    defaultEventLookback,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreUserByID loads a user and computes their score on demand.
func (s *Service) ScoreUserByID(ctx context.Context, userID uuid.UUID) (*Result, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.scoreUser(ctx, u)
}

// ScoreAll recomputes scores for every user with bounded parallelism. One
// user's failure never aborts the pass.
func (s *Service) ScoreAll(ctx context.Context) (*BatchResult, error) {
	start := time.Now()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		scored int
		failed int
	)
	sem := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(u *user.User) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.scoreUser(ctx, u)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.ErrorContext(ctx, "scoring user failed",
					"user_id", u.ID,
					"error", err,
				)
				return
			}
			scored++
		}(u)
	}
	wg.Wait()

	res := &BatchResult{
		Scored:   scored,
		Failed:   failed,
		Duration: time.Since(start),
	}
	s.metrics.RecordBatch(ctx, scored, res.Duration)
	s.logger.InfoContext(ctx, "batch scoring pass complete",
		"scored", scored,
		"failed", failed,
		"duration", res.Duration,
	)
	return res, ctx.Err()
}

// LatestScore returns the cached result for a user, falling back to a fresh
// computation on cache miss.
func (s *Service) LatestScore(ctx context.Context, userID uuid.UUID) (*Result, error) {
	if s.cache != nil {
		if res, err := s.cache.Get(ctx, userID); err == nil && res != nil {
			return res, nil
		}
	}
	return s.ScoreUserByID(ctx, userID)
}

// History returns the most recent score records for a user.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.history.ListByUser(ctx, userID, limit)
}

func (s *Service) scoreUser(ctx context.Context, u *user.User) (*Result, error) {
	devices, err := s.devices.ListByUser(ctx, u.ID)
	if err != nil {
		s.metrics.RecordScoreFailure(ctx)
		return nil, errors.Wrap(err, "loading devices")
	}
	events, err := s.events.ListRecentByUser(ctx, u.ID, time.Now().Add(-s.lookback))
	if err != nil {
		s.metrics.RecordScoreFailure(ctx)
		return nil, errors.Wrap(err, "loading access events")
	}

	vector := s.extractor.Extract(u, events, devices)
	score, err := s.model.Predict(vector.Values())
	if err != nil {
		s.metrics.RecordScoreFailure(ctx)
		return nil, err
	}

	level := values.ClassifyScore(score)
	result := &Result{
		UserID:       u.ID,
		Score:        score,
		Level:        level,
		Decision:     values.Decide(level),
		Confidence:   s.confidence(vector.Values()),
		ModelName:    s.model.Name(),
		ModelVersion: s.model.Version(),
		CalculatedAt: time.Now().UTC(),
	}

	record := trust.NewScoreRecord(u.ID, result.Score, result.Level,
		result.Confidence, result.ModelName, result.ModelVersion, result.CalculatedAt)
	if err := s.history.Append(ctx, record); err != nil {
		s.metrics.RecordScoreFailure(ctx)
		return nil, errors.Wrap(err, "appending score history")
	}

	if err := s.users.UpdateScore(ctx, u.ID, result.Score, result.Level.String()); err != nil {
		s.metrics.RecordScoreFailure(ctx)
		return nil, errors.Wrap(err, "updating user score")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, u.ID, result); err != nil {
			// Cache is best effort.
			s.logger.WarnContext(ctx, "caching score failed",
				"user_id", u.ID,
				"error", err,
			)
		}
	}

	s.metrics.RecordScore(ctx, result.Score, result.Level.String())
	s.logger.InfoContext(ctx, "user scored",
		"user_id", u.ID,
		"score", result.Score,
		"risk_level", result.Level.String(),
		"decision", result.Decision.String(),
	)
	return result, nil
}

// confidence asks the model for a prediction spread estimate when it can
// provide one, defaulting to full confidence otherwise.
func (s *Service) confidence(features []float64) float64 {
	type confidencer interface {
		Confidence(features []float64) (float64, error)
	}
	if c, ok := s.model.(confidencer); ok {
		if conf, err := c.Confidence(features); err == nil {
			return conf
		}
	}
	return 1.0
}
