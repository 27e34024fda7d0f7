package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
)

type depositService interface {
	Address() string
	OpenIntent(ctx context.Context, accountID, base string) (*domain.DepositIntent, error)
	Intent(ctx context.Context, accountID string) (*domain.DepositIntent, error)
	Verify(ctx context.Context, accountID, ref string) (*domain.Transaction, error)
}

type DepositHandler struct {
	deposits  depositService
	intentTTL time.Duration
}

func NewDepositHandler(deposits depositService, intentTTL time.Duration) *DepositHandler {
	return &DepositHandler{deposits: deposits, intentTTL: intentTTL}
}

type openIntentRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

func (r openIntentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}

	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}

	return errs
}

type openIntentDTO struct {
	intentDTO
	DepositAddress string `json:"deposit_address"`
}

func (h *DepositHandler) OpenIntent(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req openIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	intent, err := h.deposits.OpenIntent(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		log.Warn("deposit intent creation failed", "account_id", req.AccountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, openIntentDTO{
		intentDTO:      toIntentDTO(intent, h.intentTTL),
		DepositAddress: h.deposits.Address(),
	})
}

func (h *DepositHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	accountID := r.PathValue("id")

	intent, err := h.deposits.Intent(r.Context(), accountID)
	if err != nil {
		log.Warn("deposit intent lookup failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, openIntentDTO{
		intentDTO:      toIntentDTO(intent, h.intentTTL),
		DepositAddress: h.deposits.Address(),
	})
}

type verifyDepositRequest struct {
	AccountID  string `json:"account_id"`
	ChainTxRef string `json:"chain_tx_ref"`
}

func (r verifyDepositRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}

	if r.ChainTxRef == "" {
		errs = append(errs, FieldError{Field: "chain_tx_ref", Message: "required"})
	}

	return errs
}

func (h *DepositHandler) Verify(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req verifyDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	tx, err := h.deposits.Verify(r.Context(), req.AccountID, req.ChainTxRef)
	if err != nil {
		log.Warn("deposit verification failed",
			"account_id", req.AccountID,
			"chain_tx_ref", req.ChainTxRef,
			"error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(tx))
}
