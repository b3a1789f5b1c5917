package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	domainerrors "github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/trust"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/evaluation"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/scoring"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/training"
)

// TrainingService is the slice of the training layer the API consumes.
type TrainingService interface {
	Train(ctx context.Context, n int) (*training.TrainingResult, error)
	Backup(ctx context.Context) (string, error)
	ModelInfo(ctx context.Context) (*training.ModelInfo, error)
}

// EvaluationService runs model diagnostics.
type EvaluationService interface {
	Evaluate(ctx context.Context, n int) (*evaluation.Result, error)
	CrossValidate(ctx context.Context, n, k int, seed int64) (*evaluation.CrossValidationResult, error)
	ConfusionMetrics(ctx context.Context, n int, threshold float64) (*evaluation.ConfusionResult, error)
}

// ScoringService computes and reads trust scores.
type ScoringService interface {
	ScoreUserByID(ctx context.Context, userID uuid.UUID) (*scoring.Result, error)
	ScoreAll(ctx context.Context) (*scoring.BatchResult, error)
	LatestScore(ctx context.Context, userID uuid.UUID) (*scoring.Result, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*trust.ScoreRecord, error)
}

// UserAdmin covers the administrative user operations.
type UserAdmin interface {
	List(ctx context.Context) ([]*user.User, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}

// Handler serves the scoring and admin HTTP surface.
type Handler struct {
	training   TrainingService
	evaluation EvaluationService
	scoring    ScoringService
	users      UserAdmin
	logger     *slog.Logger
}

func NewHandler(tr TrainingService, ev EvaluationService, sc ScoringService, users UserAdmin, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		training:   tr,
		evaluation: ev,
		scoring:    sc,
		users:      users,
		logger:     logger,
	}
}

// Routes registers all endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/train", h.handleTrain)
	mux.HandleFunc("POST /api/admin/backup", h.handleBackup)
	mux.HandleFunc("GET /api/admin/evaluate", h.handleEvaluate)
	mux.HandleFunc("GET /api/admin/cross-validate", h.handleCrossValidate)
	mux.HandleFunc("GET /api/admin/confusion-metrics", h.handleConfusionMetrics)
	mux.HandleFunc("GET /api/admin/model-info", h.handleModelInfo)
	mux.HandleFunc("GET /api/admin/users", h.handleListUsers)
	mux.HandleFunc("POST /api/admin/users/{id}/unlock", h.handleUnlockUser)

	mux.HandleFunc("POST /api/score/all", h.handleScoreAll)
	mux.HandleFunc("POST /api/score/{id}", h.handleScoreUser)
	mux.HandleFunc("GET /api/trust-score/{id}", h.handleLatestScore)
	mux.HandleFunc("GET /api/trust-score/{id}/history", h.handleScoreHistory)
}

type trainRequest struct {
	Samples int `json:"samples"`
}

func (h *Handler) handleTrain(w http.ResponseWriter, r *http.Request) {
	req := trainRequest{Samples: 3000}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, domainerrors.NewValidationError("INVALID_BODY", "malformed request body"))
			return
		}
	}

	result, err := h.training.Train(r.Context(), req.Samples)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	path, err := h.training.Backup(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"backup_path": path})
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "samples", 1000)
	result, err := h.evaluation.Evaluate(r.Context(), n)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCrossValidate(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "samples", 1000)
	k := queryInt(r, "folds", 5)
	seed := int64(queryInt(r, "seed", int(training.DefaultSeed)))

	result, err := h.evaluation.CrossValidate(r.Context(), n, k, seed)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleConfusionMetrics(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "samples", 1000)
	threshold := queryFloat(r, "threshold", values.HighRiskThreshold)

	result, err := h.evaluation.ConfusionMetrics(r.Context(), n, threshold)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.training.ModelInfo(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleUnlockUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, domainerrors.NewValidationError("INVALID_USER_ID", "user id must be a UUID"))
		return
	}
	if err := h.users.Unlock(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func (h *Handler) handleScoreAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.scoring.ScoreAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScoreUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, domainerrors.NewValidationError("INVALID_USER_ID", "user id must be a UUID"))
		return
	}
	result, err := h.scoring.ScoreUserByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, domainerrors.NewValidationError("INVALID_USER_ID", "user id must be a UUID"))
		return
	}
	result, err := h.scoring.LatestScore(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, domainerrors.NewValidationError("INVALID_USER_ID", "user id must be a UUID"))
		return
	}
	limit := queryInt(r, "limit", 50)
	records, err := h.scoring.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
