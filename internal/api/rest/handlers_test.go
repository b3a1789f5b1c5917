package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/evaluation"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/scoring"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/training"
)

type stubTraining struct {
	trainFn  func(ctx context.Context, n int) (*training.TrainingResult, error)
	backupFn func(ctx context.Context) (string, error)
	infoFn   func(ctx context.Context) (*training.ModelInfo, error)
}

func (s *stubTraining) Train(ctx context.Context, n int) (*training.TrainingResult, error) {
	return s.trainFn(ctx, n)
}

func (s *stubTraining) Backup(ctx context.Context) (string, error) {
	return s.backupFn(ctx)
}

func (s *stubTraining) ModelInfo(ctx context.Context) (*training.ModelInfo, error) {
	return s.infoFn(ctx)
}

type stubEvaluation struct {
	evaluateFn  func(ctx context.Context, n int) (*evaluation.Result, error)
	crossFn     func(ctx context.Context, n, k int, seed int64) (*evaluation.CrossValidationResult, error)
	confusionFn func(ctx context.Context, n int, threshold float64) (*evaluation.ConfusionResult, error)
}

func (s *stubEvaluation) Evaluate(ctx context.Context, n int) (*evaluation.Result, error) {
	return s.evaluateFn(ctx, n)
}

func (s *stubEvaluation) CrossValidate(ctx context.Context, n, k int, seed int64) (*evaluation.CrossValidationResult, error) {
	return s.crossFn(ctx, n, k, seed)
}

func (s *stubEvaluation) ConfusionMetrics(ctx context.Context, n int, threshold float64) (*evaluation.ConfusionResult, error) {
	return s.confusionFn(ctx, n, threshold)
}

type stubScoring struct {
	scoreUserFn func(ctx context.Context, userID uuid.UUID) (*scoring.Result, error)
	scoreAllFn  func(ctx context.Context) (*scoring.BatchResult, error)
	latestFn    func(ctx context.Context, userID uuid.UUID) (*scoring.Result, error)
	historyFn   func(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error)
}

func (s *stubScoring) ScoreUserByID(ctx context.Context, userID uuid.UUID) (*scoring.Result, error) {
	return s.scoreUserFn(ctx, userID)
}

func (s *stubScoring) ScoreAll(ctx context.Context) (*scoring.BatchResult, error) {
	return s.scoreAllFn(ctx)
}

func (s *stubScoring) LatestScore(ctx context.Context, userID uuid.UUID) (*scoring.Result, error) {
	return s.latestFn(ctx, userID)
}

func (s *stubScoring) History(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error) {
	return s.historyFn(ctx, userID, limit)
}

type stubUserAdmin struct {
	listFn   func(ctx context.Context) ([]*user.User, error)
	unlockFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubUserAdmin) List(ctx context.Context) ([]*user.User, error) { return s.listFn(ctx) }
func (s *stubUserAdmin) Unlock(ctx context.Context, id uuid.UUID) error { return s.unlockFn(ctx, id) }

func newTestMux(tr TrainingService, ev EvaluationService, sc ScoringService, users UserAdmin) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(tr, ev, sc, users, nil).Routes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleTrain(t *testing.T) {
	var gotSamples int
	tr := &stubTraining{
		trainFn: func(_ context.Context, n int) (*training.TrainingResult, error) {
			gotSamples = n
			return &training.TrainingResult{Samples: n, ModelName: "random_forest"}, nil
		},
	}
	mux := newTestMux(tr, nil, nil, nil)

	t.Run("explicit sample count", func(t *testing.T) {
		rec := doRequest(mux, http.MethodPost, "/api/admin/train", `{"samples": 500}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 500, gotSamples)

		var result training.TrainingResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 500, result.Samples)
		assert.Equal(t, "random_forest", result.ModelName)
	})

	t.Run("empty body uses default", func(t *testing.T) {
		rec := doRequest(mux, http.MethodPost, "/api/admin/train", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 3000, gotSamples)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(mux, http.MethodPost, "/api/admin/train", "{not json")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_BODY", resp.Code)
	})
}

func TestHandleEvaluateUntrainedModel(t *testing.T) {
	ev := &stubEvaluation{
		evaluateFn: func(_ context.Context, _ int) (*evaluation.Result, error) {
			return nil, ml.ErrUntrained
		},
	}
	mux := newTestMux(nil, ev, nil, nil)

	rec := doRequest(mux, http.MethodGet, "/api/admin/evaluate", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UNTRAINED_MODEL", resp.Code)
}

func TestHandleCrossValidateQueryParams(t *testing.T) {
	var gotN, gotK int
	var gotSeed int64
	ev := &stubEvaluation{
		crossFn: func(_ context.Context, n, k int, seed int64) (*evaluation.CrossValidationResult, error) {
			gotN, gotK, gotSeed = n, k, seed
			return &evaluation.CrossValidationResult{}, nil
		},
	}
	mux := newTestMux(nil, ev, nil, nil)

	rec := doRequest(mux, http.MethodGet, "/api/admin/cross-validate?samples=600&folds=3&seed=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 600, gotN)
	assert.Equal(t, 3, gotK)
	assert.Equal(t, int64(7), gotSeed)

	// Defaults apply when params are absent.
	rec = doRequest(mux, http.MethodGet, "/api/admin/cross-validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000, gotN)
	assert.Equal(t, 5, gotK)
	assert.Equal(t, training.DefaultSeed, gotSeed)
}

func TestHandleConfusionMetricsThresholdDefault(t *testing.T) {
	var gotThreshold float64
	ev := &stubEvaluation{
		confusionFn: func(_ context.Context, _ int, threshold float64) (*evaluation.ConfusionResult, error) {
			gotThreshold = threshold
			return &evaluation.ConfusionResult{}, nil
		},
	}
	mux := newTestMux(nil, ev, nil, nil)

	rec := doRequest(mux, http.MethodGet, "/api/admin/confusion-metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, values.HighRiskThreshold, gotThreshold)

	rec = doRequest(mux, http.MethodGet, "/api/admin/confusion-metrics?threshold=55.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 55.5, gotThreshold)
}

func TestHandleScoreUserInvalidID(t *testing.T) {
	mux := newTestMux(nil, nil, &stubScoring{}, nil)

	rec := doRequest(mux, http.MethodPost, "/api/score/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_USER_ID", resp.Code)
}

func TestHandleLatestScore(t *testing.T) {
	userID := uuid.New()
	sc := &stubScoring{
		latestFn: func(_ context.Context, id uuid.UUID) (*scoring.Result, error) {
			return &scoring.Result{UserID: id, Score: 82, Level: values.RiskLevelLow, Decision: values.DecisionAllow}, nil
		},
	}
	mux := newTestMux(nil, nil, sc, nil)

	rec := doRequest(mux, http.MethodGet, "/api/trust-score/"+userID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result scoring.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, 82.0, result.Score)
	assert.Equal(t, values.RiskLevelLow, result.Level)
	assert.Equal(t, values.DecisionAllow, result.Decision)
}

func TestHandleScoreHistoryLimit(t *testing.T) {
	userID := uuid.New()
	var gotLimit int
	sc := &stubScoring{
		historyFn: func(_ context.Context, _ uuid.UUID, limit int) ([]*trust.ScoreRecord, error) {
			gotLimit = limit
			return []*trust.ScoreRecord{}, nil
		},
	}
	mux := newTestMux(nil, nil, sc, nil)

	rec := doRequest(mux, http.MethodGet, "/api/trust-score/"+userID.String()+"/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gotLimit)

	rec = doRequest(mux, http.MethodGet, "/api/trust-score/"+userID.String()+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, gotLimit)
}

func TestHandleUnlockUser(t *testing.T) {
	userID := uuid.New()
	var unlocked uuid.UUID
	users := &stubUserAdmin{
		unlockFn: func(_ context.Context, id uuid.UUID) error {
			unlocked = id
			return nil
		},
	}
	mux := newTestMux(nil, nil, nil, users)

	rec := doRequest(mux, http.MethodPost, "/api/admin/users/"+userID.String()+"/unlock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, unlocked)
}

func TestHandleScoreAll(t *testing.T) {
	sc := &stubScoring{
		scoreAllFn: func(_ context.Context) (*scoring.BatchResult, error) {
			return &scoring.BatchResult{Scored: 12, Failed: 1}, nil
		},
	}
	mux := newTestMux(nil, nil, sc, nil)

	rec := doRequest(mux, http.MethodPost, "/api/score/all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result scoring.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 12, result.Scored)
	assert.Equal(t, 1, result.Failed)
}
