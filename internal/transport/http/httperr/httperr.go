package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rentora/rental-svc/internal/service/models/apperrors"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// Write maps a service error to its HTTP status and writes a JSON error
// body. Internal causes are logged but never leak to the client.
func Write(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	body := errorResponse{Error: errorBody{
		Kind:    string(appErr.Kind),
		Code:    string(appErr.Code),
		Message: appErr.Error(),
		Field:   appErr.Field,
	}}
	if appErr.Kind == apperrors.KindInternal {
		body.Error.Message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
