package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/repository"
	"github.com/settleco/usdt-ledger/internal/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	txs := repository.NewTransactionRepository(db)
	svc := NewAccountService(accounts, txs)
	ctx := context.Background()

	name := "Alice"
	first, err := svc.Register(ctx, "alice", &name)
	require.NoError(t, err)
	require.NotNil(t, first.DisplayName)
	assert.Equal(t, "Alice", *first.DisplayName)

	// Re-registering refreshes metadata without creating a second account.
	renamed := "Alice B."
	second, err := svc.Register(ctx, "alice", &renamed)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	require.NotNil(t, second.DisplayName)
	assert.Equal(t, "Alice B.", *second.DisplayName)

	// Omitting the name keeps the stored one.
	third, err := svc.Register(ctx, "alice", nil)
	require.NoError(t, err)
	require.NotNil(t, third.DisplayName)
	assert.Equal(t, "Alice B.", *third.DisplayName)
}

func TestHistoryOrderAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	txs := repository.NewTransactionRepository(db)
	svc := NewAccountService(accounts, txs)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "alice")

	for i := range 25 {
		ref := fmt.Sprintf("0x%064x", i)
		testutil.SeedCompletedDeposit(t, db, "alice", "1", ref)
	}

	history, err := svc.History(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, history, defaultHistoryLimit)

	history, err = svc.History(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, history, 10)

	// Newest first.
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i-1].ID, history[i].ID)
	}

	history, err = svc.History(ctx, "alice", 1000)
	require.NoError(t, err)
	assert.Len(t, history, 25, "limit is capped, all rows still fit")

	_, err = svc.History(ctx, "nobody", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
