package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/repository"
	"github.com/settleco/usdt-ledger/internal/testutil"
)

const (
	payoutAddress = "0x00000000000000000000000000000000000000cc"

	refPayout = "0x" + "cc00000000000000000000000000000000000000000000000000000000000003"
)

func setupWithdrawalTest(t *testing.T, stub *stubChain) (*sql.DB, *WithdrawalService, *BalanceService) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	txs := repository.NewTransactionRepository(db)
	svc := NewWithdrawalService(db, accounts, txs, txs, stub, tok(t, "0.4"))
	return db, svc, NewBalanceService(txs)
}

func TestWithdrawalReservesAmountPlusFee(t *testing.T) {
	stub := newStubChain(100)
	db, svc, balances := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "50.4", refA)

	record, err := svc.Create(ctx, "alice", payoutAddress, "50")
	require.NoError(t, err)

	assert.Equal(t, domain.TxStatusPending, record.Status)
	require.NotNil(t, record.Fee)
	assert.Equal(t, "0.400000", record.Fee.FormatToken())

	balance, err := balances.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance.FormatToken())
}

func TestWithdrawalInsufficientBalance(t *testing.T) {
	stub := newStubChain(100)
	db, svc, _ := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "50.3", refA)

	// 50 + 0.4 fee exceeds 50.3.
	_, err := svc.Create(ctx, "alice", payoutAddress, "50")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, 1, testutil.CountTransactions(t, db, "alice"))
}

func TestWithdrawalInvalidAddress(t *testing.T) {
	stub := newStubChain(100)
	db, svc, _ := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "100", refA)

	_, err := svc.Create(ctx, "alice", "not-an-address", "10")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestProcessCompletesWithdrawal(t *testing.T) {
	stub := newStubChain(104)
	stub.submitRef = refPayout
	stub.addReceipt(refPayout, 100)

	db, svc, balances := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "50.4", refA)

	record, err := svc.Create(ctx, "alice", payoutAddress, "50")
	require.NoError(t, err)

	updated, err := svc.Process(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TxStatusCompleted, updated.Status)
	require.NotNil(t, updated.ChainTxRef)
	assert.Equal(t, refPayout, *updated.ChainTxRef)
	require.NotNil(t, updated.Confirmations)
	assert.Equal(t, int64(5), *updated.Confirmations)
	require.NotNil(t, updated.CompletedAt)

	require.Len(t, stub.submitted, 1)
	assert.Equal(t, payoutAddress, stub.submitted[0].To)
	assert.True(t, stub.submitted[0].Amount.Equal(tok(t, "50")), "fee is kept, not sent")

	// Completion does not change the spendable balance; the hold became the
	// settled outflow.
	balance, err := balances.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance.FormatToken())
}

func TestProcessOnlyOnce(t *testing.T) {
	stub := newStubChain(104)
	stub.submitRef = refPayout

	db, svc, _ := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "100", refA)

	record, err := svc.Create(ctx, "alice", payoutAddress, "10")
	require.NoError(t, err)

	_, err = svc.Process(ctx, record.ID)
	require.NoError(t, err)

	_, err = svc.Process(ctx, record.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	require.Len(t, stub.submitted, 1, "the transfer must not be submitted twice")
}

func TestProcessSubmitFailureReleasesHold(t *testing.T) {
	stub := newStubChain(104)
	stub.submitErr = errors.New("rpc: connection refused")

	db, svc, balances := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedCompletedDeposit(t, db, "alice", "50.4", refA)

	record, err := svc.Create(ctx, "alice", payoutAddress, "50")
	require.NoError(t, err)

	_, err = svc.Process(ctx, record.ID)
	assert.ErrorIs(t, err, domain.ErrChainSubmission)

	assert.Equal(t, domain.TxStatusFailed, testutil.GetTransactionStatus(t, db, record.ID))

	failed, err := repository.NewTransactionRepository(db).GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, failed.AdminNote)
	assert.Contains(t, *failed.AdminNote, "submission failed")

	// Failed withdrawals no longer hold funds.
	balance, err := balances.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(tok(t, "50.4")), "got %s", balance.FormatToken())
}

func TestProcessRejectsNonWithdrawal(t *testing.T) {
	stub := newStubChain(104)
	db, svc, _ := setupWithdrawalTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	depositID := testutil.SeedCompletedDeposit(t, db, "alice", "100", refA)

	_, err := svc.Process(ctx, depositID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
