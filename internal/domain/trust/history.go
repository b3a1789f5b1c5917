package trust

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

// ScoreRecord is one append-only entry in a user's risk score history.
// The scoring orchestrator is the only writer; entries are never mutated
// after creation.
type ScoreRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Score      float64          `json:"score"`
	Level      values.RiskLevel `json:"level"`
	Confidence float64          `json:"confidence"` // [0,1]

	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// NewScoreRecord stamps a scoring outcome for the history sink.
func NewScoreRecord(userID uuid.UUID, score float64, level values.RiskLevel, confidence float64, modelName, modelVersion string, at time.Time) *ScoreRecord {
	return &ScoreRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Score:        score,
		Level:        level,
		Confidence:   confidence,
		ModelName:    modelName,
		ModelVersion: modelVersion,
		CalculatedAt: at,
	}
}
