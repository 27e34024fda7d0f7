package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/money"
)

// reserveOutgoing inserts a pending outgoing record after checking the
// balance, all under the account's row lock. Inserting the record is what
// reserves the funds: the balance fold counts pending outflows, so once the
// transaction commits no concurrent request can spend the same value, even
// though settlement happens later without any lock held.
func reserveOutgoing(
	ctx context.Context,
	db *sql.DB,
	accounts accountLocker,
	balances balanceReader,
	txs txCreator,
	rec *domain.Transaction,
	hold money.Amount,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reserveOutgoing: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := accounts.GetForUpdate(ctx, tx, rec.AccountID); err != nil {
		return fmt.Errorf("reserveOutgoing: %w", err)
	}

	raw, err := balances.SpendableBalance(ctx, tx, rec.AccountID)
	if err != nil {
		return fmt.Errorf("reserveOutgoing: %w", err)
	}

	if raw.Cmp(hold.Decimal()) < 0 {
		return fmt.Errorf("reserveOutgoing: need %s, have %s: %w",
			hold.FormatToken(), raw.String(), domain.ErrInsufficientBalance)
	}

	if err := txs.Create(ctx, tx, rec); err != nil {
		return fmt.Errorf("reserveOutgoing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reserveOutgoing: commit: %w", err)
	}
	return nil
}
