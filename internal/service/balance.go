package service

import (
	"context"
	"fmt"

	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

// BalanceService derives an account's spendable balance from its ledger.
// Pure read; never mutates records.
type BalanceService struct {
	balances balanceReader
}

func NewBalanceService(balances balanceReader) *BalanceService {
	return &BalanceService{balances: balances}
}

// Balance returns the spendable balance, clamped at zero. Reservation is
// atomic, so a negative raw sum cannot happen through this core's own
// operations; it is reported loudly as a ledger invariant violation before
// clamping.
func (s *BalanceService) Balance(ctx context.Context, accountID string) (money.Amount, error) {
	raw, err := s.balances.SpendableBalance(ctx, nil, accountID)
	if err != nil {
		return money.Zero, fmt.Errorf("Balance: %w", err)
	}

	if raw.IsNegative() {
		logging.FromContext(ctx).Error("ledger invariant violated: negative spendable balance",
			"account_id", accountID,
			"raw_balance", raw.String(),
		)
		return money.Zero, nil
	}

	return money.FromDecimal(raw), nil
}
