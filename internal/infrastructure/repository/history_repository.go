package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Append writes one score record. Each write is a single independent insert
// so a cancelled batch pass never leaves partial rows behind.
func (r *HistoryRepository) Append(ctx context.Context, rec *trust.ScoreRecord) error {
	query := `
		INSERT INTO score_history (
			id, user_id, score, risk_level, confidence,
			model_name, model_version, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Score, rec.Level.String(), rec.Confidence,
		rec.ModelName, rec.ModelVersion, rec.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting score record: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error) {
	query := `
		SELECT id, user_id, score, risk_level, confidence,
		       model_name, model_version, calculated_at
		FROM score_history
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing score history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*trust.ScoreRecord
	for rows.Next() {
		var rec trust.ScoreRecord
		var level string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Score, &level, &rec.Confidence,
			&rec.ModelName, &rec.ModelVersion, &rec.CalculatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning score record row: %w", err)
		}
		rec.Level = values.ParseRiskLevel(level)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
