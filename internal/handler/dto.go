package handler

import (
	"time"

	"github.com/settleco/usdt-ledger/internal/domain"
)

type transactionDTO struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	Amount        string     `json:"amount"`
	Fee           *string    `json:"fee,omitempty"`
	FiatAmount    *string    `json:"fiat_amount,omitempty"`
	FiatCurrency  *string    `json:"fiat_currency,omitempty"`
	ToAddress     *string    `json:"to_address,omitempty"`
	ChainTxRef    *string    `json:"chain_tx_ref,omitempty"`
	Confirmations *int64     `json:"confirmations,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:            t.ID,
		Kind:          string(t.Kind),
		Status:        string(t.Status),
		Amount:        t.Amount.FormatToken(),
		ToAddress:     t.ToAddress,
		ChainTxRef:    t.ChainTxRef,
		Confirmations: t.Confirmations,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
	if t.Fee != nil {
		fee := t.Fee.FormatToken()
		dto.Fee = &fee
	}
	if t.FiatAmount != nil {
		fiat := t.FiatAmount.FormatFiat()
		dto.FiatAmount = &fiat
	}
	if t.FiatCurrency != nil {
		c := string(*t.FiatCurrency)
		dto.FiatCurrency = &c
	}
	return dto
}

func toTransactionDTOs(ts []domain.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(ts))
	for i := range ts {
		out = append(out, toTransactionDTO(&ts[i]))
	}
	return out
}

type intentDTO struct {
	AccountID      string    `json:"account_id"`
	ExpectedAmount string    `json:"expected_amount"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toIntentDTO(i *domain.DepositIntent, ttl time.Duration) intentDTO {
	return intentDTO{
		AccountID:      i.AccountID,
		ExpectedAmount: i.ExpectedAmount.FormatToken(),
		CreatedAt:      i.CreatedAt,
		ExpiresAt:      i.CreatedAt.Add(ttl),
	}
}

type rateDTO struct {
	RateUSD   string    `json:"rate_usd"`
	RateUAH   string    `json:"rate_uah"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRateDTO(r *domain.ExchangeRate) rateDTO {
	return rateDTO{
		RateUSD:   r.RateUSD.String(),
		RateUAH:   r.RateUAH.String(),
		UpdatedAt: r.UpdatedAt,
	}
}
