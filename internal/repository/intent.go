package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/money"
)

// IntentRepository stores open deposit intents durably so they survive
// restarts and are shared across instances. One row per account; a new
// intent supersedes the old one.
type IntentRepository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewIntentRepository(db *sql.DB, ttl time.Duration) *IntentRepository {
	return &IntentRepository{db: db, ttl: ttl}
}

func (r *IntentRepository) Open(ctx context.Context, accountID string, expected money.Amount) (*domain.DepositIntent, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO deposit_intents (account_id, expected_amount, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id) DO UPDATE
		SET expected_amount = EXCLUDED.expected_amount, created_at = now()
		RETURNING account_id, expected_amount, created_at`,
		accountID, expected,
	)
	intent, err := scanIntent(row)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	return intent, nil
}

// Get returns the open intent for the account. An intent older than the TTL
// is treated as absent and removed on the way out.
func (r *IntentRepository) Get(ctx context.Context, accountID string) (*domain.DepositIntent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT account_id, expected_amount, created_at FROM deposit_intents
		WHERE account_id = $1`,
		accountID,
	)
	intent, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}

	if time.Since(intent.CreatedAt) > r.ttl {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM deposit_intents WHERE account_id = $1 AND created_at = $2`,
			accountID, intent.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("Get: expire: %w", err)
		}
		return nil, fmt.Errorf("Get: expired: %w", domain.ErrNotFound)
	}

	return intent, nil
}

// Delete clears the intent inside the settlement transaction.
func (r *IntentRepository) Delete(ctx context.Context, tx *sql.Tx, accountID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM deposit_intents WHERE account_id = $1`, accountID,
	); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func scanIntent(s scanner) (*domain.DepositIntent, error) {
	var i domain.DepositIntent
	if err := s.Scan(&i.AccountID, &i.ExpectedAmount, &i.CreatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}
