package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/settleco/usdt-ledger/internal/domain"
)

const accountColumns = `id, display_name, created_at, last_seen_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert registers the account on first interaction and refreshes the display
// name and last-seen timestamp on every subsequent one. Accounts are never
// deleted.
func (r *AccountRepository) Upsert(ctx context.Context, id string, displayName *string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET display_name = COALESCE(EXCLUDED.display_name, accounts.display_name),
		    last_seen_at = now()
		RETURNING `+accountColumns,
		id, displayName,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// GetForUpdate locks the account row for the duration of tx. Reservation of
// outgoing value happens under this lock so two concurrent requests cannot
// both pass the balance check.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	if err := s.Scan(&a.ID, &a.DisplayName, &a.CreatedAt, &a.LastSeenAt); err != nil {
		return nil, err
	}
	return &a, nil
}
