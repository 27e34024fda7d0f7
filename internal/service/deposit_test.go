package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/chain"
	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/repository"
	"github.com/settleco/usdt-ledger/internal/testutil"
)

const (
	testDepositAddress = "0x00000000000000000000000000000000000000aa"
	testSenderAddress  = "0x00000000000000000000000000000000000000bb"

	refA = "0x" + "aa00000000000000000000000000000000000000000000000000000000000001"
	refB = "0x" + "bb00000000000000000000000000000000000000000000000000000000000002"
)

func setupDepositTest(t *testing.T, stub *stubChain) (*sql.DB, *DepositService, *repository.IntentRepository) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	intents := repository.NewIntentRepository(db, 24*time.Hour)
	txs := repository.NewTransactionRepository(db)
	svc := NewDepositService(db, intents, txs, stub, testDepositAddress, 5)
	return db, svc, intents
}

func TestOpenIntentAddsFractionalSuffix(t *testing.T) {
	db, svc, _ := setupDepositTest(t, newStubChain(100))
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	intent, err := svc.OpenIntent(ctx, "alice", "10")
	require.NoError(t, err)

	base := tok(t, "10")
	assert.Equal(t, 1, intent.ExpectedAmount.Cmp(base), "expected amount must exceed the base")
	assert.Equal(t, -1, intent.ExpectedAmount.Cmp(tok(t, "11")), "suffix stays below one token")

	// A second intent supersedes the first.
	second, err := svc.OpenIntent(ctx, "alice", "25")
	require.NoError(t, err)

	got, err := svc.Intent(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.ExpectedAmount.Equal(second.ExpectedAmount))
}

func TestVerifySettlesMatchingTransfer(t *testing.T) {
	stub := newStubChain(100)
	db, svc, intents := setupDepositTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	expected := tok(t, "10.1234")
	_, err := intents.Open(ctx, "alice", expected)
	require.NoError(t, err)

	stub.addReceipt(refA, 95, chain.TransferEvent{
		From:   testSenderAddress,
		To:     testDepositAddress,
		Amount: expected,
	})

	record, err := svc.Verify(ctx, "alice", refA)
	require.NoError(t, err)

	assert.Equal(t, domain.TxKindDeposit, record.Kind)
	assert.Equal(t, domain.TxStatusCompleted, record.Status)
	require.NotNil(t, record.ChainTxRef)
	assert.Equal(t, strings.ToLower(refA), *record.ChainTxRef)
	require.NotNil(t, record.Confirmations)
	assert.Equal(t, int64(5), *record.Confirmations)
	require.NotNil(t, record.CompletedAt)

	balances := NewBalanceService(repository.NewTransactionRepository(db))
	balance, err := balances.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(expected), "balance %s, want %s", balance.FormatToken(), expected.FormatToken())

	// Settlement consumed the intent.
	_, err = svc.Verify(ctx, "alice", refA)
	assert.ErrorIs(t, err, domain.ErrNoOpenIntent)
}

func TestVerifyRejectsAmountMismatch(t *testing.T) {
	stub := newStubChain(100)
	db, svc, intents := setupDepositTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	_, err := intents.Open(ctx, "alice", tok(t, "10.1234"))
	require.NoError(t, err)

	stub.addReceipt(refA, 90, chain.TransferEvent{
		From:   testSenderAddress,
		To:     testDepositAddress,
		Amount: tok(t, "10.1235"),
	})

	_, err = svc.Verify(ctx, "alice", refA)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, "alice"))
}

func TestVerifyErrors(t *testing.T) {
	stub := newStubChain(100)
	db, svc, intents := setupDepositTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	t.Run("malformed reference", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice", "not-a-hash")
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("no open intent", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice", refA)
		assert.ErrorIs(t, err, domain.ErrNoOpenIntent)
	})

	_, err := intents.Open(ctx, "alice", tok(t, "10.1234"))
	require.NoError(t, err)

	t.Run("not mined yet", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice", refB)
		assert.ErrorIs(t, err, domain.ErrNotConfirmed)
	})

	t.Run("insufficient confirmations", func(t *testing.T) {
		stub.addReceipt(refA, 98, chain.TransferEvent{
			From:   testSenderAddress,
			To:     testDepositAddress,
			Amount: tok(t, "10.1234"),
		})
		_, err := svc.Verify(ctx, "alice", refA)
		assert.ErrorIs(t, err, domain.ErrInsufficientConfirmations)
	})

	t.Run("no transfer to deposit address", func(t *testing.T) {
		stub.addReceipt(refB, 90, chain.TransferEvent{
			From:   testSenderAddress,
			To:     testSenderAddress,
			Amount: tok(t, "10.1234"),
		})
		_, err := svc.Verify(ctx, "alice", refB)
		assert.ErrorIs(t, err, domain.ErrNoTransferFound)
	})
}

func TestVerifyRefusesDoubleCredit(t *testing.T) {
	stub := newStubChain(100)
	db, svc, intents := setupDepositTest(t, stub)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedAccount(t, db, "bob")

	expected := tok(t, "10.1234")
	stub.addReceipt(refA, 90, chain.TransferEvent{
		From:   testSenderAddress,
		To:     testDepositAddress,
		Amount: expected,
	})

	_, err := intents.Open(ctx, "alice", expected)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "alice", refA)
	require.NoError(t, err)

	// The same on-chain transfer cannot credit a second account, even with a
	// matching open intent.
	_, err = intents.Open(ctx, "bob", expected)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "bob", refA)
	assert.ErrorIs(t, err, domain.ErrDuplicateSettlement)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, "bob"))
}

func TestVerifyExpiredIntent(t *testing.T) {
	stub := newStubChain(100)
	db := testutil.SetupTestDB(t)
	intents := repository.NewIntentRepository(db, 50*time.Millisecond)
	svc := NewDepositService(db, intents, repository.NewTransactionRepository(db), stub, testDepositAddress, 5)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	expected := tok(t, "10.1234")
	_, err := intents.Open(ctx, "alice", expected)
	require.NoError(t, err)

	stub.addReceipt(refA, 90, chain.TransferEvent{
		From:   testSenderAddress,
		To:     testDepositAddress,
		Amount: expected,
	})

	time.Sleep(100 * time.Millisecond)

	_, err = svc.Verify(ctx, "alice", refA)
	assert.ErrorIs(t, err, domain.ErrNoOpenIntent)
}
