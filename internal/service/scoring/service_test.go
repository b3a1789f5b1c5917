package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/device"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/event"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
)

var (
	_ UserRepository    = (*mockUserRepo)(nil)
	_ DeviceRepository  = (*mockDeviceRepo)(nil)
	_ EventRepository   = (*mockEventRepo)(nil)
	_ HistoryRepository = (*mockHistoryRepo)(nil)
	_ ScoreCache        = (*mockCache)(nil)
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateScore(ctx context.Context, id uuid.UUID, score float64, level string) error {
	return m.Called(ctx, id, score, level).Error(0)
}

type mockDeviceRepo struct{ mock.Mock }

func (m *mockDeviceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*device.Device, error) {
	args := m.Called(ctx, userID)
	if d := args.Get(0); d != nil {
		return d.([]*device.Device), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEventRepo struct{ mock.Mock }

func (m *mockEventRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]*event.AccessEvent, error) {
	args := m.Called(ctx, userID, since)
	if e := args.Get(0); e != nil {
		return e.([]*event.AccessEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockHistoryRepo struct{ mock.Mock }

func (m *mockHistoryRepo) Append(ctx context.Context, rec *trust.ScoreRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockHistoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error) {
	args := m.Called(ctx, userID, limit)
	if r := args.Get(0); r != nil {
		return r.([]*trust.ScoreRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Set(ctx context.Context, userID uuid.UUID, result *Result) error {
	return m.Called(ctx, userID, result).Error(0)
}

func (m *mockCache) Get(ctx context.Context, userID uuid.UUID) (*Result, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.(*Result), args.Error(1)
	}
	return nil, args.Error(1)
}

// trainedModel fits a small forest on the feature-space scale so predictions
// are plausible scores.
func trainedModel(t *testing.T) *ml.Forest {
	t.Helper()

	f := ml.NewForest(ml.ForestConfig{NumTrees: 10, Seed: 1})
	samples := make([]ml.Sample, 0, 60)
	for i := 0; i < 60; i++ {
		risk := float64(i) / 59.0
		vec := values.FeatureVector{
			FailedLoginRate:  risk * 0.6,
			NightAccessRate:  risk * 0.7,
			AvgDeviceRisk:    10 + risk*80,
			NetworkRiskScore: 10 + risk*70,
		}.Clamped()
		samples = append(samples, ml.Sample{
			Features: vec.Values(),
			Label:    95 - risk*80,
		})
	}
	require.NoError(t, f.Train(context.Background(), samples))
	return f
}

func testUser() *user.User {
	u, _ := user.NewUser("alice@example.com")
	return u
}

func newTestService(users UserRepository, devices DeviceRepository, events EventRepository, history HistoryRepository, cache ScoreCache, model Predictor) *Service {
	return NewService(users, devices, events, history, cache, model, nil, nil, WithParallelism(4))
}

func TestScoreUserByID(t *testing.T) {
	ctx := context.Background()
	u := testUser()

	users := &mockUserRepo{}
	devices := &mockDeviceRepo{}
	events := &mockEventRepo{}
	history := &mockHistoryRepo{}

	users.On("GetByID", ctx, u.ID).Return(u, nil)
	devices.On("ListByUser", ctx, u.ID).Return([]*device.Device{}, nil)
	events.On("ListRecentByUser", ctx, u.ID, mock.AnythingOfType("time.Time")).Return([]*event.AccessEvent{}, nil)
	history.On("Append", ctx, mock.AnythingOfType("*trust.ScoreRecord")).Return(nil)
	users.On("UpdateScore", ctx, u.ID, mock.AnythingOfType("float64"), mock.AnythingOfType("string")).Return(nil)

	svc := newTestService(users, devices, events, history, nil, trainedModel(t))

	res, err := svc.ScoreUserByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, u.ID, res.UserID)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Equal(t, values.ClassifyScore(res.Score), res.Level)
	assert.Equal(t, values.Decide(res.Level), res.Decision)
	assert.Equal(t, "random_forest", res.ModelName)
	assert.False(t, res.CalculatedAt.IsZero())

	history.AssertCalled(t, "Append", ctx, mock.AnythingOfType("*trust.ScoreRecord"))
	users.AssertCalled(t, "UpdateScore", ctx, u.ID, mock.AnythingOfType("float64"), mock.AnythingOfType("string"))
}

func TestScoreUserByID_UntrainedModel(t *testing.T) {
	ctx := context.Background()
	u := testUser()

	users := &mockUserRepo{}
	devices := &mockDeviceRepo{}
	events := &mockEventRepo{}
	history := &mockHistoryRepo{}

	users.On("GetByID", ctx, u.ID).Return(u, nil)
	devices.On("ListByUser", ctx, u.ID).Return([]*device.Device{}, nil)
	events.On("ListRecentByUser", ctx, u.ID, mock.AnythingOfType("time.Time")).Return([]*event.AccessEvent{}, nil)

	untrained := ml.NewForest(ml.ForestConfig{NumTrees: 5, Seed: 1})
	svc := newTestService(users, devices, events, history, nil, untrained)

	_, err := svc.ScoreUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ml.ErrUntrained)
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestScoreAll_IsolatesPerUserFailures(t *testing.T) {
	ctx := context.Background()
	good := testUser()
	bad := testUser()

	users := &mockUserRepo{}
	devices := &mockDeviceRepo{}
	events := &mockEventRepo{}
	history := &mockHistoryRepo{}

	users.On("List", ctx).Return([]*user.User{good, bad}, nil)

	devices.On("ListByUser", ctx, good.ID).Return([]*device.Device{}, nil)
	events.On("ListRecentByUser", ctx, good.ID, mock.AnythingOfType("time.Time")).Return([]*event.AccessEvent{}, nil)

	// The second user's event fetch fails; the batch must still finish.
	devices.On("ListByUser", ctx, bad.ID).Return([]*device.Device{}, nil)
	events.On("ListRecentByUser", ctx, bad.ID, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("event store down"))

	history.On("Append", ctx, mock.AnythingOfType("*trust.ScoreRecord")).Return(nil)
	users.On("UpdateScore", ctx, good.ID, mock.AnythingOfType("float64"), mock.AnythingOfType("string")).Return(nil)

	svc := newTestService(users, devices, events, history, nil, trainedModel(t))

	res, err := svc.ScoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scored)
	assert.Equal(t, 1, res.Failed)
}

func TestLatestScore_CacheHit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	cached := &Result{UserID: userID, Score: 80, Level: values.RiskLevelLow}

	cache := &mockCache{}
	cache.On("Get", ctx, userID).Return(cached, nil)

	users := &mockUserRepo{}
	svc := newTestService(users, &mockDeviceRepo{}, &mockEventRepo{}, &mockHistoryRepo{}, cache, trainedModel(t))

	res, err := svc.LatestScore(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cached, res)
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestLatestScore_CacheMissFallsThrough(t *testing.T) {
	ctx := context.Background()
	u := testUser()

	cache := &mockCache{}
	cache.On("Get", ctx, u.ID).Return(nil, nil)
	cache.On("Set", ctx, u.ID, mock.AnythingOfType("*scoring.Result")).Return(nil)

	users := &mockUserRepo{}
	devices := &mockDeviceRepo{}
	events := &mockEventRepo{}
	history := &mockHistoryRepo{}

	users.On("GetByID", ctx, u.ID).Return(u, nil)
	devices.On("ListByUser", ctx, u.ID).Return([]*device.Device{}, nil)
	events.On("ListRecentByUser", ctx, u.ID, mock.AnythingOfType("time.Time")).Return([]*event.AccessEvent{}, nil)
	history.On("Append", ctx, mock.AnythingOfType("*trust.ScoreRecord")).Return(nil)
	users.On("UpdateScore", ctx, u.ID, mock.AnythingOfType("float64"), mock.AnythingOfType("string")).Return(nil)

	svc := newTestService(users, devices, events, history, cache, trainedModel(t))

	res, err := svc.LatestScore(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
	cache.AssertCalled(t, "Set", ctx, u.ID, mock.AnythingOfType("*scoring.Result"))
}

func TestHistory_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	history := &mockHistoryRepo{}
	history.On("ListByUser", ctx, userID, 50).Return([]*trust.ScoreRecord{}, nil)

	svc := newTestService(&mockUserRepo{}, &mockDeviceRepo{}, &mockEventRepo{}, history, nil, trainedModel(t))

	_, err := svc.History(ctx, userID, 0)
	require.NoError(t, err)
	history.AssertCalled(t, "ListByUser", ctx, userID, 50)
}
