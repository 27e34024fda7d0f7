package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/settleco/usdt-ledger/internal/domain"
)

const transactionColumns = `id, kind, account_id, amount, fiat_amount, fiat_currency,
	to_address, chain_tx_ref, fee, confirmations, status, admin_note,
	created_at, updated_at, completed_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new ledger record, inside the caller's transaction when
// one is given, and fills in the generated id and timestamps. Inserting a completed record
// whose chain reference is already settled returns ErrDuplicateSettlement.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	var q queryRower = r.db
	if tx != nil {
		q = tx
	}
	err := q.QueryRowContext(ctx,
		`INSERT INTO transactions (
			kind, account_id, amount, fiat_amount, fiat_currency,
			to_address, chain_tx_ref, fee, confirmations, status, admin_note, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		t.Kind, t.AccountID, t.Amount, t.FiatAmount, t.FiatCurrency,
		t.ToAddress, t.ChainTxRef, t.Fee, t.Confirmations, t.Status, t.AdminNote, t.CompletedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateSettlement)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// UpdateStatus applies a status transition together with all of its
// status-coupled fields in one guarded UPDATE. A record not in the expected
// source status yields ErrInvalidState (ErrNotFound if it does not exist).
// Completing a record whose chain reference is already settled elsewhere
// yields ErrDuplicateSettlement.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, change domain.StatusChange) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		SET status = $1,
		    chain_tx_ref = COALESCE($2, chain_tx_ref),
		    confirmations = COALESCE($3, confirmations),
		    completed_at = COALESCE($4, completed_at),
		    admin_note = COALESCE($5, admin_note),
		    updated_at = now()
		WHERE id = $6 AND status = $7`,
		change.To, change.ChainTxRef(), change.Confirmations(), change.CompletedAt(), change.AdminNote(),
		id, change.From,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("UpdateStatus: %w", domain.ErrDuplicateSettlement)
		}
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("UpdateStatus: %w", domain.ErrInvalidState)
	}
	return nil
}

// SetChainRef persists the chain reference returned by submission while the
// withdrawal is still Processing, so a crash before mining can be reconciled
// against the chain.
func (r *TransactionRepository) SetChainRef(ctx context.Context, id int64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET chain_tx_ref = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		ref, id, domain.TxStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("SetChainRef: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetChainRef: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetChainRef: %w", domain.ErrInvalidState)
	}
	return nil
}

func (r *TransactionRepository) FindPendingByKind(ctx context.Context, kind domain.TxKind, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE kind = $1 AND status = $2
		ORDER BY created_at
		LIMIT $3`,
		kind, domain.TxStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("FindPendingByKind: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows, "FindPendingByKind")
}

func (r *TransactionRepository) HistoryForAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("HistoryForAccount: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows, "HistoryForAccount")
}

// SpendableBalance folds the account's ledger into its raw spendable balance:
// completed deposits in, every non-failed withdrawal (amount plus fee) and
// exchange out. Pending and processing outflows count so that value is
// reserved the moment the record is created. The result may be negative; the
// balance engine decides what to do about that.
func (r *TransactionRepository) SpendableBalance(ctx context.Context, tx *sql.Tx, accountID string) (decimal.Decimal, error) {
	var q queryRower = r.db
	if tx != nil {
		q = tx
	}
	var raw decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(
			CASE
				WHEN kind = 'deposit' AND status = 'completed' THEN amount
				WHEN kind = 'withdrawal' AND status IN ('pending', 'processing', 'completed')
					THEN -(amount + COALESCE(fee, 0))
				WHEN kind = 'exchange' AND status IN ('pending', 'processing', 'completed') THEN -amount
				ELSE 0
			END), 0)
		FROM transactions WHERE account_id = $1`,
		accountID,
	).Scan(&raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("SpendableBalance: %w", err)
	}
	return raw, nil
}

func collectTransactions(rows *sql.Rows, op string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var fiatCurrency *string

	err := s.Scan(
		&t.ID, &t.Kind, &t.AccountID, &t.Amount, &t.FiatAmount, &fiatCurrency,
		&t.ToAddress, &t.ChainTxRef, &t.Fee, &t.Confirmations, &t.Status, &t.AdminNote,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if fiatCurrency != nil {
		c := domain.FiatCurrency(*fiatCurrency)
		t.FiatCurrency = &c
	}
	return &t, nil
}
