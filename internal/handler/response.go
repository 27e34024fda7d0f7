package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/money"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps the settlement error taxonomy onto stable API
// codes. Everything unmapped is an internal error and is logged, never
// exposed.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, money.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidAddress):
		appErr = ErrInvalidAddress
	case errors.Is(err, domain.ErrInvalidReference):
		appErr = ErrInvalidReference
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrNoOpenIntent):
		appErr = ErrNoOpenIntent
	case errors.Is(err, domain.ErrNotConfirmed):
		appErr = ErrNotConfirmed
	case errors.Is(err, domain.ErrInsufficientConfirmations):
		appErr = ErrInsufficientConfirmations
	case errors.Is(err, domain.ErrNoTransferFound):
		appErr = ErrNoTransferFound
	case errors.Is(err, domain.ErrAmountMismatch):
		appErr = ErrAmountMismatch
	case errors.Is(err, domain.ErrDuplicateSettlement):
		appErr = ErrDuplicateSettlement
	case errors.Is(err, domain.ErrInsufficientBalance):
		appErr = ErrInsufficientBalance
	case errors.Is(err, domain.ErrInvalidState):
		appErr = ErrInvalidState
	case errors.Is(err, domain.ErrRateNotSet):
		appErr = ErrRateNotSet
	case errors.Is(err, domain.ErrChainSubmission):
		appErr = ErrChainSubmission
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
