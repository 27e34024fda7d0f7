package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/repository"
	"github.com/settleco/usdt-ledger/internal/testutil"
)

func TestSettleWorkerDrainsPendingWithdrawals(t *testing.T) {
	stub := newStubChain(104)
	stub.submitRef = refPayout
	stub.addReceipt(refPayout, 100)

	db, svc, _ := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "100", refA)

	record, err := svc.Create(ctx, "alice", payoutAddress, "10")
	require.NoError(t, err)

	worker := NewSettleWorker(svc, repository.NewTransactionRepository(db), slog.Default(), 20*time.Millisecond)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go worker.Start(workerCtx)

	require.Eventually(t, func() bool {
		var status string
		if err := db.QueryRow(`SELECT status FROM transactions WHERE id = $1`, record.ID).Scan(&status); err != nil {
			return false
		}
		return domain.TxStatus(status) == domain.TxStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
}
