package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

type accountService interface {
	Register(ctx context.Context, id string, displayName *string) (*domain.Account, error)
	History(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

type balanceService interface {
	Balance(ctx context.Context, accountID string) (money.Amount, error)
}

type AccountHandler struct {
	accounts accountService
	balances balanceService
}

func NewAccountHandler(accounts accountService, balances balanceService) *AccountHandler {
	return &AccountHandler{accounts: accounts, balances: balances}
}

type registerAccountRequest struct {
	AccountID   string  `json:"account_id"`
	DisplayName *string `json:"display_name"`
}

func (r registerAccountRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	} else if len(r.AccountID) > 128 {
		errs = append(errs, FieldError{Field: "account_id", Message: "must be at most 128 characters"})
	}

	return errs
}

type accountDTO struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req registerAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	acc, err := h.accounts.Register(r.Context(), req.AccountID, req.DisplayName)
	if err != nil {
		log.Warn("account registration failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, accountDTO{
		ID:          acc.ID,
		DisplayName: acc.DisplayName,
		CreatedAt:   acc.CreatedAt,
		LastSeenAt:  acc.LastSeenAt,
	})
}

type balanceDTO struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	accountID := r.PathValue("id")

	balance, err := h.balances.Balance(r.Context(), accountID)
	if err != nil {
		log.Warn("balance lookup failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{
		AccountID: accountID,
		Balance:   balance.FormatToken(),
	})
}

func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	accountID := r.PathValue("id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be a positive integer"}})
			return
		}
		limit = n
	}

	history, err := h.accounts.History(r.Context(), accountID, limit)
	if err != nil {
		log.Warn("history lookup failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"account_id":   accountID,
		"transactions": toTransactionDTOs(history),
	})
}
