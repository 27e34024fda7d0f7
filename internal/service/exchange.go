package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

type rateRepo interface {
	Get(ctx context.Context) (*domain.ExchangeRate, error)
	Set(ctx context.Context, rateUSD, rateUAH decimal.Decimal) error
}

type exchangeStore interface {
	txCreator
	txReader
	UpdateStatus(ctx context.Context, id int64, change domain.StatusChange) error
}

// ExchangeService converts token balances to fiat through manual settlement:
// creation reserves the tokens, a human pays the fiat out of band and then
// settles or rejects the record.
type ExchangeService struct {
	db       *sql.DB
	accounts accountLocker
	balances balanceReader
	txs      exchangeStore
	rates    rateRepo
}

func NewExchangeService(
	db *sql.DB,
	accounts accountLocker,
	balances balanceReader,
	txs exchangeStore,
	rates rateRepo,
) *ExchangeService {
	return &ExchangeService{
		db:       db,
		accounts: accounts,
		balances: balances,
		txs:      txs,
		rates:    rates,
	}
}

// Create reserves the token amount and records the fiat value at the current
// rate, rounded half-up to cents.
func (s *ExchangeService) Create(ctx context.Context, accountID, rawAmount string, currency domain.FiatCurrency) (*domain.Transaction, error) {
	if !currency.IsValid() {
		return nil, fmt.Errorf("Create: %q: %w", currency, domain.ErrInvalidCurrency)
	}

	amount, err := money.ParseToken(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	rate, err := s.rates.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	perToken, ok := rate.For(currency)
	if !ok {
		return nil, fmt.Errorf("Create: %q: %w", currency, domain.ErrInvalidCurrency)
	}

	fiat := amount.MulRate(perToken).RoundFiat()
	record := &domain.Transaction{
		Kind:         domain.TxKindExchange,
		AccountID:    accountID,
		Amount:       amount,
		FiatAmount:   &fiat,
		FiatCurrency: &currency,
		Status:       domain.TxStatusPending,
	}

	if err := reserveOutgoing(ctx, s.db, s.accounts, s.balances, s.txs, record, amount); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("exchange reserved",
		"account_id", accountID,
		"transaction_id", record.ID,
		"amount", amount.FormatToken(),
		"fiat_amount", fiat.FormatFiat(),
		"fiat_currency", currency,
	)
	return record, nil
}

// Decide settles or rejects a pending exchange. This is the explicit
// administrative decision: no exchange completes on its own.
func (s *ExchangeService) Decide(ctx context.Context, id int64, approve bool, note string) (*domain.Transaction, error) {
	record, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Decide: %w", err)
	}
	if record.Kind != domain.TxKindExchange {
		return nil, fmt.Errorf("Decide: record %d is not an exchange: %w", id, domain.ErrInvalidState)
	}

	change := domain.RejectExchange(note)
	if approve {
		change = domain.SettleExchange(note, time.Now().UTC())
	}
	if err := s.txs.UpdateStatus(ctx, id, change); err != nil {
		return nil, fmt.Errorf("Decide: %w", err)
	}

	logging.FromContext(ctx).Info("exchange decided",
		"transaction_id", id,
		"approved", approve,
	)

	updated, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Decide: %w", err)
	}
	return updated, nil
}

// SetRate replaces the singleton exchange rate.
func (s *ExchangeService) SetRate(ctx context.Context, rawUSD, rawUAH string) (*domain.ExchangeRate, error) {
	usd, err := parseRate(rawUSD)
	if err != nil {
		return nil, fmt.Errorf("SetRate: usd: %w", err)
	}
	uah, err := parseRate(rawUAH)
	if err != nil {
		return nil, fmt.Errorf("SetRate: uah: %w", err)
	}

	if err := s.rates.Set(ctx, usd, uah); err != nil {
		return nil, fmt.Errorf("SetRate: %w", err)
	}
	return s.rates.Get(ctx)
}

func (s *ExchangeService) Rate(ctx context.Context) (*domain.ExchangeRate, error) {
	rate, err := s.rates.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("Rate: %w", err)
	}
	return rate, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, money.ErrInvalidAmount
	}
	return d, nil
}
