package domain

import (
	"time"

	"github.com/settleco/usdt-ledger/internal/money"
)

type TxKind string

const (
	TxKindDeposit    TxKind = "deposit"
	TxKindWithdrawal TxKind = "withdrawal"
	TxKindExchange   TxKind = "exchange"
)

func (k TxKind) IsValid() bool {
	switch k {
	case TxKindDeposit, TxKindWithdrawal, TxKindExchange:
		return true
	}
	return false
}

type TxStatus string

const (
	TxStatusPending    TxStatus = "pending"
	TxStatusProcessing TxStatus = "processing"
	TxStatusCompleted  TxStatus = "completed"
	TxStatusFailed     TxStatus = "failed"
)

// Terminal reports whether a record in this status is immutable.
func (s TxStatus) Terminal() bool {
	return s == TxStatusCompleted || s == TxStatusFailed
}

type FiatCurrency string

const (
	FiatUSD FiatCurrency = "USD"
	FiatUAH FiatCurrency = "UAH"
)

func (c FiatCurrency) IsValid() bool {
	return c == FiatUSD || c == FiatUAH
}

// Transaction is a ledger entry. Amount is always positive token units; the
// kind decides whether it counts toward or against the account balance.
// Optional fields are populated per kind: to_address and fee for withdrawals,
// fiat amount/currency for exchanges, confirmations for deposits, chain ref
// for anything settled on chain.
type Transaction struct {
	ID            int64
	Kind          TxKind
	AccountID     string
	Amount        money.Amount
	FiatAmount    *money.Amount
	FiatCurrency  *FiatCurrency
	ToAddress     *string
	ChainTxRef    *string
	Fee           *money.Amount
	Confirmations *int64
	Status        TxStatus
	AdminNote     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}
