package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
)

type exchangeService interface {
	Create(ctx context.Context, accountID, rawAmount string, currency domain.FiatCurrency) (*domain.Transaction, error)
	Decide(ctx context.Context, id int64, approve bool, note string) (*domain.Transaction, error)
	SetRate(ctx context.Context, rawUSD, rawUAH string) (*domain.ExchangeRate, error)
	Rate(ctx context.Context) (*domain.ExchangeRate, error)
}

type ExchangeHandler struct {
	exchanges exchangeService
}

func NewExchangeHandler(exchanges exchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchanges: exchanges}
}

type createExchangeRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func (r createExchangeRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountID == "" {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}

	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}

	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.FiatCurrency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD or UAH"})
	}

	return errs
}

func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	tx, err := h.exchanges.Create(r.Context(), req.AccountID, req.Amount, domain.FiatCurrency(req.Currency))
	if err != nil {
		log.Warn("exchange creation failed", "account_id", req.AccountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(tx))
}

type decideExchangeRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *ExchangeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "id", Message: "must be a valid transaction id"}})
		return
	}

	var req decideExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	tx, err := h.exchanges.Decide(r.Context(), id, req.Approve, req.Note)
	if err != nil {
		log.Warn("exchange decision failed", "transaction_id", id, "approve", req.Approve, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(tx))
}

type setRateRequest struct {
	RateUSD string `json:"rate_usd"`
	RateUAH string `json:"rate_uah"`
}

func (r setRateRequest) Validate() []FieldError {
	var errs []FieldError

	if r.RateUSD == "" {
		errs = append(errs, FieldError{Field: "rate_usd", Message: "required"})
	}

	if r.RateUAH == "" {
		errs = append(errs, FieldError{Field: "rate_uah", Message: "required"})
	}

	return errs
}

func (h *ExchangeHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rate, err := h.exchanges.SetRate(r.Context(), req.RateUSD, req.RateUAH)
	if err != nil {
		log.Warn("rate update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toRateDTO(rate))
}

func (h *ExchangeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.exchanges.Rate(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toRateDTO(rate))
}
