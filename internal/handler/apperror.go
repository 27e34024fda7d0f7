package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingAdminKey  = &AppError{http.StatusUnauthorized, "MISSING_ADMIN_KEY", "X-Admin-Key header required"}
	ErrInvalidAdminKey  = &AppError{http.StatusUnauthorized, "INVALID_ADMIN_KEY", "Admin key is invalid"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount is malformed or not positive"}
	ErrInvalidAddress   = &AppError{http.StatusBadRequest, "INVALID_ADDRESS", "Address is not a valid recipient address"}
	ErrInvalidReference = &AppError{http.StatusBadRequest, "INVALID_REFERENCE", "Chain transaction reference is malformed"}
	ErrInvalidCurrency  = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Currency must be USD or UAH"}

	ErrNoOpenIntent              = &AppError{http.StatusUnprocessableEntity, "NO_OPEN_INTENT", "No open deposit intent for this account"}
	ErrNotConfirmed              = &AppError{http.StatusUnprocessableEntity, "NOT_CONFIRMED", "Transfer is not yet mined; retry later"}
	ErrInsufficientConfirmations = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_CONFIRMATIONS", "Transfer does not have enough confirmations yet; retry later"}
	ErrNoTransferFound           = &AppError{http.StatusUnprocessableEntity, "NO_TRANSFER_FOUND", "No transfer to the deposit address found in this transaction"}
	ErrAmountMismatch            = &AppError{http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", "Transferred amount does not match the deposit intent"}
	ErrDuplicateSettlement       = &AppError{http.StatusConflict, "DUPLICATE_SETTLEMENT", "This chain transaction has already been settled"}

	ErrInsufficientBalance = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance"}
	ErrInvalidState        = &AppError{http.StatusConflict, "INVALID_STATE", "Record is not in a state that allows this operation"}
	ErrRateNotSet          = &AppError{http.StatusUnprocessableEntity, "RATE_NOT_SET", "Exchange rate has not been configured"}
	ErrChainSubmission     = &AppError{http.StatusBadGateway, "CHAIN_SUBMISSION_FAILED", "Chain submission failed; the withdrawal was marked failed"}
	ErrChainUnavailable    = &AppError{http.StatusBadGateway, "CHAIN_UNAVAILABLE", "Chain RPC did not answer; retry later"}
)
