package rest

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/davidleathers/zero-trust-scoring-backend/internal/domain/errors"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto HTTP responses. AppError carries its own
// status code; model sentinels get explicit mappings; anything else is a 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *domainerrors.AppError
	if stderrors.As(err, &appErr) {
		writeJSON(w, appErr.StatusCode, errorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	switch {
	case stderrors.Is(err, ml.ErrUntrained):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "model has not been trained",
			Code:  "UNTRAINED_MODEL",
		})
	case stderrors.Is(err, ml.ErrInvalidTrainingSet):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "training set is empty or malformed",
			Code:  "INVALID_TRAINING_SET",
		})
	default:
		logger.Error("unhandled request error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
