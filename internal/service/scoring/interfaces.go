package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/device"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/event"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
)

// UserRepository provides access to user records.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score float64, level string) error
}

// DeviceRepository provides access to a user's registered devices.
type DeviceRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*device.Device, error)
}

// EventRepository provides access to recent access events.
type EventRepository interface {
	ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]*event.AccessEvent, error)
}

// HistoryRepository appends and reads score history records.
type HistoryRepository interface {
	Append(ctx context.Context, record *trust.ScoreRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error)
}

// ScoreCache caches the latest computed result per user.
type ScoreCache interface {
	Set(ctx context.Context, userID uuid.UUID, result *Result) error
	Get(ctx context.Context, userID uuid.UUID) (*Result, error)
}

// Predictor is the slice of the model the orchestrator needs.
type Predictor interface {
	Predict(features []float64) (float64, error)
	Name() string
	Version() string
}
