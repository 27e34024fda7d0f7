package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/money"
	"github.com/settleco/usdt-ledger/internal/testutil"
)

const testRef = "0x" + "dd00000000000000000000000000000000000000000000000000000000000004"

func amount(t *testing.T, raw string) money.Amount {
	t.Helper()
	a, err := money.ParseToken(raw)
	if err != nil {
		t.Fatalf("parse amount %q: %v", raw, err)
	}
	return a
}

func createPendingWithdrawal(t *testing.T, repo *TransactionRepository, accountID string) *domain.Transaction {
	t.Helper()
	to := "0x00000000000000000000000000000000000000cc"
	fee := amount(t, "0.4")
	rec := &domain.Transaction{
		Kind:      domain.TxKindWithdrawal,
		AccountID: accountID,
		Amount:    amount(t, "10"),
		ToAddress: &to,
		Fee:       &fee,
		Status:    domain.TxStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), nil, rec))
	return rec
}

func TestUpdateStatusGuardsTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	rec := createPendingWithdrawal(t, repo, "alice")

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, domain.MarkProcessing()))

	// Already left Pending; a second claim must lose.
	err := repo.UpdateStatus(ctx, rec.ID, domain.MarkProcessing())
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID,
		domain.CompleteWithdrawal(testRef, 6, time.Now().UTC())))

	// Terminal states reject further transitions.
	err = repo.UpdateStatus(ctx, rec.ID, domain.FailWithdrawal("too late"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, got.Status)
	require.NotNil(t, got.ChainTxRef)
	assert.Equal(t, testRef, *got.ChainTxRef)
	require.NotNil(t, got.Confirmations)
	assert.Equal(t, int64(6), *got.Confirmations)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewTransactionRepository(db)

	err := repo.UpdateStatus(context.Background(), 404, domain.MarkProcessing())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompletedChainRefIsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")
	testutil.SeedAccount(t, db, "bob")

	ref := testRef
	now := time.Now().UTC()
	first := &domain.Transaction{
		Kind:        domain.TxKindDeposit,
		AccountID:   "alice",
		Amount:      amount(t, "10.1234"),
		ChainTxRef:  &ref,
		Status:      domain.TxStatusCompleted,
		CompletedAt: &now,
	}
	require.NoError(t, repo.Create(ctx, nil, first))

	second := &domain.Transaction{
		Kind:        domain.TxKindDeposit,
		AccountID:   "bob",
		Amount:      amount(t, "10.1234"),
		ChainTxRef:  &ref,
		Status:      domain.TxStatusCompleted,
		CompletedAt: &now,
	}
	err := repo.Create(ctx, nil, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateSettlement)

	// The same reference on a failed record is allowed; only settled value
	// is protected.
	rec := createPendingWithdrawal(t, repo, "bob")
	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, domain.MarkProcessing()))
	require.NoError(t, repo.SetChainRef(ctx, rec.ID, ref))
	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, domain.FailWithdrawal("reverted")))

	// Completing a different record against the settled reference is refused.
	other := createPendingWithdrawal(t, repo, "bob")
	require.NoError(t, repo.UpdateStatus(ctx, other.ID, domain.MarkProcessing()))
	err = repo.UpdateStatus(ctx, other.ID, domain.CompleteWithdrawal(ref, 3, now))
	assert.ErrorIs(t, err, domain.ErrDuplicateSettlement)
}

func TestIntentTTL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewIntentRepository(db, 50*time.Millisecond)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	_, err := repo.Open(ctx, "alice", amount(t, "10.1234"))
	require.NoError(t, err)

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.ExpectedAmount.Equal(amount(t, "10.1234")))

	time.Sleep(100 * time.Millisecond)

	_, err = repo.Get(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Opening again after expiry works; the stale row is gone.
	_, err = repo.Open(ctx, "alice", amount(t, "20.5678"))
	require.NoError(t, err)
	got, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.ExpectedAmount.Equal(amount(t, "20.5678")))
}
