// Package evaluation runs the trained model against fresh synthetic data and
// derives regression and classification quality metrics from the results.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/metrics"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/training"
)

// Result holds regression error metrics from a single evaluation run.
type Result struct {
	Samples     int     `json:"samples"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	Correlation float64 `json:"correlation"`
	Summary     string  `json:"summary"`
}

// FoldResult holds the metrics of one cross-validation fold.
type FoldResult struct {
	Fold        int     `json:"fold"`
	Samples     int     `json:"samples"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	Correlation float64 `json:"correlation"`
}

// CrossValidationResult aggregates per-fold metrics.
type CrossValidationResult struct {
	Folds           []FoldResult `json:"folds"`
	MeanMAE         float64      `json:"mean_mae"`
	StdDevMAE       float64      `json:"stddev_mae"`
	MeanRMSE        float64      `json:"mean_rmse"`
	MeanCorrelation float64      `json:"mean_correlation"`
}

// ConfusionResult holds classification metrics for scores thresholded into
// high-risk (positive) versus not-high-risk at a fixed cutoff.
type ConfusionResult struct {
	Samples        int     `json:"samples"`
	Threshold      float64 `json:"threshold"`
	TruePositives  int     `json:"true_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	FPR            float64 `json:"fpr"`
	FNR            float64 `json:"fnr"`
	Accuracy       float64 `json:"accuracy"`
}

// Service evaluates a trained model against generator ground truth. Cross
// validation trains throwaway models from newModel so the serving model is
// never disturbed.
type Service struct {
	model    ml.Model
	newModel func() ml.Model
	logger   *slog.Logger
	metrics  *metrics.Registry
	seedFn   func() int64
}

// NewService creates an evaluation service around the serving model. newModel
// must return a fresh untrained model of the same family for cross-validation.
func NewService(model ml.Model, newModel func() ml.Model, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		model:    model,
		newModel: newModel,
		logger:   logger,
		metrics:  reg,
		seedFn:   func() int64 { return time.Now().UnixNano() },
	}
}

// Evaluate generates n fresh samples with a time-based seed, predicts each,
// and compares predictions against the generator's ground-truth labels.
func (s *Service) Evaluate(ctx context.Context, n int) (*Result, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("INVALID_SAMPLE_COUNT",
			"evaluation sample count must be positive")
	}

	samples := training.TrainingSet(training.NewGenerator(s.seedFn()).Generate(n))
	preds, labels, err := s.predictAll(ctx, s.model, samples)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Samples:     n,
		MAE:         meanAbsoluteError(preds, labels),
		RMSE:        rootMeanSquaredError(preds, labels),
		Correlation: pearson(preds, labels),
	}
	res.Summary = fmt.Sprintf("evaluated %d samples: MAE=%.2f RMSE=%.2f corr=%.3f",
		n, res.MAE, res.RMSE, res.Correlation)

	s.metrics.RecordEvaluation(ctx, res.MAE)
	s.logger.InfoContext(ctx, "model evaluation complete",
		"samples", n,
		"mae", res.MAE,
		"rmse", res.RMSE,
		"correlation", res.Correlation,
	)
	return res, nil
}

// CrossValidate partitions n generated samples into k folds, trains a fresh
// model on k-1 folds, evaluates on the held-out fold, and aggregates.
func (s *Service) CrossValidate(ctx context.Context, n, k int, seed int64) (*CrossValidationResult, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("INVALID_SAMPLE_COUNT",
			"cross-validation sample count must be positive")
	}
	if k < 2 || k > n {
		return nil, errors.NewValidationError("INVALID_FOLD_COUNT",
			fmt.Sprintf("fold count must be in [2, %d], got %d", n, k))
	}
	if s.newModel == nil {
		return nil, errors.NewInternalError("cross-validation requires a model factory")
	}

	samples := training.TrainingSet(training.NewGenerator(seed).Generate(n))
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	res := &CrossValidationResult{Folds: make([]FoldResult, 0, k)}
	foldSize := n / k
	for f := 0; f < k; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lo := f * foldSize
		hi := lo + foldSize
		if f == k-1 {
			hi = n
		}

		test := samples[lo:hi]
		train := make([]ml.Sample, 0, n-len(test))
		train = append(train, samples[:lo]...)
		train = append(train, samples[hi:]...)

		model := s.newModel()
		if err := model.Train(ctx, train); err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		preds, labels, err := s.predictAll(ctx, model, test)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}

		res.Folds = append(res.Folds, FoldResult{
			Fold:        f,
			Samples:     len(test),
			MAE:         meanAbsoluteError(preds, labels),
			RMSE:        rootMeanSquaredError(preds, labels),
			Correlation: pearson(preds, labels),
		})
	}

	var sumMAE, sumRMSE, sumCorr float64
	for _, fr := range res.Folds {
		sumMAE += fr.MAE
		sumRMSE += fr.RMSE
		sumCorr += fr.Correlation
	}
	kf := float64(len(res.Folds))
	res.MeanMAE = sumMAE / kf
	res.MeanRMSE = sumRMSE / kf
	res.MeanCorrelation = sumCorr / kf

	var sq float64
	for _, fr := range res.Folds {
		d := fr.MAE - res.MeanMAE
		sq += d * d
	}
	res.StdDevMAE = math.Sqrt(sq / kf)

	s.logger.InfoContext(ctx, "cross-validation complete",
		"samples", n,
		"folds", k,
		"mean_mae", res.MeanMAE,
		"stddev_mae", res.StdDevMAE,
	)
	return res, nil
}

// ConfusionMetrics thresholds both the ground-truth label and the predicted
// score at threshold into high-risk (positive) versus not. Scores strictly
// below the threshold are high risk, matching the risk classifier.
func (s *Service) ConfusionMetrics(ctx context.Context, n int, threshold float64) (*ConfusionResult, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("INVALID_SAMPLE_COUNT",
			"confusion sample count must be positive")
	}
	if threshold <= 0 {
		threshold = values.HighRiskThreshold
	}

	samples := training.TrainingSet(training.NewGenerator(s.seedFn()).Generate(n))
	preds, labels, err := s.predictAll(ctx, s.model, samples)
	if err != nil {
		return nil, err
	}

	res := &ConfusionResult{Samples: n, Threshold: threshold}
	for i := range preds {
		actualHigh := labels[i] < threshold
		predictedHigh := preds[i] < threshold
		switch {
		case actualHigh && predictedHigh:
			res.TruePositives++
		case !actualHigh && !predictedHigh:
			res.TrueNegatives++
		case !actualHigh && predictedHigh:
			res.FalsePositives++
		default:
			res.FalseNegatives++
		}
	}

	res.FPR = safeRatio(res.FalsePositives, res.FalsePositives+res.TrueNegatives)
	res.FNR = safeRatio(res.FalseNegatives, res.FalseNegatives+res.TruePositives)
	res.Accuracy = safeRatio(res.TruePositives+res.TrueNegatives, n)

	s.logger.InfoContext(ctx, "confusion metrics complete",
		"samples", n,
		"threshold", threshold,
		"fpr", res.FPR,
		"fnr", res.FNR,
		"accuracy", res.Accuracy,
	)
	return res, nil
}

func (s *Service) predictAll(ctx context.Context, model ml.Model, samples []ml.Sample) (preds, labels []float64, err error) {
	preds = make([]float64, len(samples))
	labels = make([]float64, len(samples))
	for i, smp := range samples {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p, err := model.Predict(smp.Features)
		if err != nil {
			return nil, nil, err
		}
		preds[i] = p
		labels[i] = smp.Label
	}
	return preds, labels, nil
}

func meanAbsoluteError(preds, labels []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		sum += math.Abs(preds[i] - labels[i])
	}
	return sum / float64(len(preds))
}

func rootMeanSquaredError(preds, labels []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		d := preds[i] - labels[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(preds)))
}

// pearson computes the Pearson correlation coefficient, returning 0 when
// either series has zero variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func safeRatio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
