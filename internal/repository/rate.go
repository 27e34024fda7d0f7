package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/settleco/usdt-ledger/internal/domain"
)

// RateRepository manages the singleton exchange rate record. Only the current
// value matters for new exchanges; no history is retained.
type RateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) Get(ctx context.Context) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.db.QueryRowContext(ctx,
		`SELECT rate_usd, rate_uah, updated_at FROM exchange_rate WHERE id = 1`,
	).Scan(&rate.RateUSD, &rate.RateUAH, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrRateNotSet)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &rate, nil
}

func (r *RateRepository) Set(ctx context.Context, rateUSD, rateUAH decimal.Decimal) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO exchange_rate (id, rate_usd, rate_uah, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET rate_usd = EXCLUDED.rate_usd, rate_uah = EXCLUDED.rate_uah, updated_at = now()`,
		rateUSD, rateUAH,
	); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}
