package testutil

import (
	"database/sql"
	"testing"

	"github.com/settleco/usdt-ledger/internal/domain"
)

func SeedAccount(t *testing.T, db *sql.DB, id string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		id,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

// SeedCompletedDeposit credits the account with a settled deposit so tests
// can start from a funded balance.
func SeedCompletedDeposit(t *testing.T, db *sql.DB, accountID, amount, chainTxRef string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO transactions (kind, account_id, amount, chain_tx_ref, confirmations, status, completed_at)
		 VALUES ('deposit', $1, $2, $3, 12, 'completed', now())
		 RETURNING id`,
		accountID, amount, chainTxRef,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed completed deposit for %s: %v", accountID, err)
	}
	return id
}

func GetTransactionStatus(t *testing.T, db *sql.DB, id int64) domain.TxStatus {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM transactions WHERE id = $1`, id).Scan(&status)
	if err != nil {
		t.Fatalf("get transaction status %d: %v", id, err)
	}
	return domain.TxStatus(status)
}

func CountTransactions(t *testing.T, db *sql.DB, accountID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", accountID, err)
	}
	return count
}
