package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
)

type withdrawalService interface {
	Create(ctx context.Context, accountID, toAddress, rawAmount string) (*domain.Transaction, error)
	Process(ctx context.Context, id int64) (*domain.Transaction, error)
}

type WithdrawalHandler struct {
	withdrawals withdrawalService
}

func NewWithdrawalHandler(withdrawals withdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type createWithdrawalRequest struct {
	AccountID string `json:"account_id"`
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`
}

func (r createWithdrawalRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}

	if r.ToAddress == "" {
		errs = append(errs, FieldError{Field: "to_address", Message: "required"})
	}

	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}

	return errs
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	tx, err := h.withdrawals.Create(r.Context(), req.AccountID, req.ToAddress, req.Amount)
	if err != nil {
		log.Warn("withdrawal creation failed", "account_id", req.AccountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(tx))
}

// Process drives one pending withdrawal through chain submission. The settle
// worker does the same on a timer; this endpoint exists for operators who do
// not want to wait for the next tick.
func (h *WithdrawalHandler) Process(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid transaction id"}})
		return
	}

	tx, err := h.withdrawals.Process(r.Context(), id)
	if err != nil {
		log.Warn("withdrawal processing failed", "transaction_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(tx))
}
