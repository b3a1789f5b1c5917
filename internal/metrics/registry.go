// Package metrics holds the domain-specific OpenTelemetry instruments for
// the scoring backend.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application. A nil
// registry is valid and records nothing, which keeps unit tests free of
// meter-provider setup.
type Registry struct {
	meter metric.Meter

	// Scoring metrics
	ScoreDistribution metric.Float64Histogram
	ScoreCounter      metric.Int64Counter
	ScoreFailures     metric.Int64Counter
	BatchDuration     metric.Float64Histogram
	BatchUsersScored  metric.Int64Counter

	// Model lifecycle metrics
	TrainingDuration metric.Float64Histogram
	TrainingSamples  metric.Int64Counter
	EvaluationMAE    metric.Float64Gauge
}

// NewRegistry creates a new metrics registry with all domain metrics.
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.ScoreDistribution, err = meter.Float64Histogram(
		"zts.score.value",
		metric.WithDescription("Distribution of computed trust scores"),
		metric.WithExplicitBucketBoundaries(0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, err
	}

	r.ScoreCounter, err = meter.Int64Counter(
		"zts.score.computed_total",
		metric.WithDescription("Total number of scoring passes, by risk level"),
	)
	if err != nil {
		return nil, err
	}

	r.ScoreFailures, err = meter.Int64Counter(
		"zts.score.failures_total",
		metric.WithDescription("Total number of failed scoring passes"),
	)
	if err != nil {
		return nil, err
	}

	r.BatchDuration, err = meter.Float64Histogram(
		"zts.batch.duration",
		metric.WithDescription("Duration of batch recompute passes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	r.BatchUsersScored, err = meter.Int64Counter(
		"zts.batch.users_scored_total",
		metric.WithDescription("Total users scored by batch passes"),
	)
	if err != nil {
		return nil, err
	}

	r.TrainingDuration, err = meter.Float64Histogram(
		"zts.model.training_duration",
		metric.WithDescription("Duration of model training runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	r.TrainingSamples, err = meter.Int64Counter(
		"zts.model.training_samples_total",
		metric.WithDescription("Total synthetic samples used for training"),
	)
	if err != nil {
		return nil, err
	}

	r.EvaluationMAE, err = meter.Float64Gauge(
		"zts.model.evaluation_mae",
		metric.WithDescription("Mean absolute error from the last evaluation run"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordScore records one completed scoring pass.
func (r *Registry) RecordScore(ctx context.Context, score float64, riskLevel string) {
	if r == nil {
		return
	}
	r.ScoreDistribution.Record(ctx, score)
	r.ScoreCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", riskLevel)))
}

// RecordScoreFailure records one failed scoring pass.
func (r *Registry) RecordScoreFailure(ctx context.Context) {
	if r == nil {
		return
	}
	r.ScoreFailures.Add(ctx, 1)
}

// RecordBatch records one completed batch recompute pass.
func (r *Registry) RecordBatch(ctx context.Context, usersScored int, duration time.Duration) {
	if r == nil {
		return
	}
	r.BatchDuration.Record(ctx, duration.Seconds())
	r.BatchUsersScored.Add(ctx, int64(usersScored))
}

// RecordTraining records one completed training run.
func (r *Registry) RecordTraining(ctx context.Context, samples int, duration time.Duration) {
	if r == nil {
		return
	}
	r.TrainingDuration.Record(ctx, duration.Seconds())
	r.TrainingSamples.Add(ctx, int64(samples))
}

// RecordEvaluation records headline metrics from an evaluation run.
func (r *Registry) RecordEvaluation(ctx context.Context, mae float64) {
	if r == nil {
		return
	}
	r.EvaluationMAE.Record(ctx, mae)
}
