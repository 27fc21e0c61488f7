package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResp := ErrorResponse{
		Error: message,
		Code:  code,
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// WriteDomainError maps the business taxonomy onto HTTP statuses. An
// error outside the taxonomy is an infrastructure failure: log it and
// hide the detail.
func WriteDomainError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		logger.Error("internal error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
		return
	}

	var status int
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindAccessDenied:
		status = http.StatusForbidden
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindInvalidState, domain.KindQuotaExhausted, domain.KindAlreadyUsed, domain.KindSchedulingConflict:
		status = http.StatusConflict
	case domain.KindNotYetValid, domain.KindExpiredCredential:
		status = http.StatusGone
	default:
		status = http.StatusInternalServerError
	}

	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}

	WriteError(w, status, message, string(kind))
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, string(domain.KindValidation))
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, "UNAUTHORIZED")
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// WriteJSON writes a success payload.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
