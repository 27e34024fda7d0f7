package service

import (
	"context"
	"fmt"

	"github.com/settleco/usdt-ledger/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type accountRepo interface {
	Upsert(ctx context.Context, id string, displayName *string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

type historyRepo interface {
	HistoryForAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

type AccountService struct {
	accounts accountRepo
	history  historyRepo
}

func NewAccountService(accounts accountRepo, history historyRepo) *AccountService {
	return &AccountService{accounts: accounts, history: history}
}

// Register creates the account on first interaction and refreshes the display
// name and last-seen timestamp after that.
func (s *AccountService) Register(ctx context.Context, id string, displayName *string) (*domain.Account, error) {
	a, err := s.accounts.Upsert(ctx, id, displayName)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	return a, nil
}

func (s *AccountService) History(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := s.history.HistoryForAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return records, nil
}
