package domain

import (
	"time"

	"github.com/settleco/usdt-ledger/internal/money"
)

// DepositIntent is the time-boxed expectation that an account will send
// ExpectedAmount to the shared deposit address. The amount carries a random
// fractional suffix, so the amount alone identifies the sending account.
// At most one open intent per account; a new intent supersedes the old one.
type DepositIntent struct {
	AccountID      string
	ExpectedAmount money.Amount
	CreatedAt      time.Time
}
