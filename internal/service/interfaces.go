package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/settleco/usdt-ledger/internal/domain"
)

// Repository capabilities split per consumer; the concrete implementations
// live in internal/repository.

type txCreator interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type txReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
}

type balanceReader interface {
	SpendableBalance(ctx context.Context, tx *sql.Tx, accountID string) (decimal.Decimal, error)
}

type accountLocker interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Account, error)
}
