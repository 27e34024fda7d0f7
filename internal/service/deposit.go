package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/settleco/usdt-ledger/internal/chain"
	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

type intentRepo interface {
	Open(ctx context.Context, accountID string, expected money.Amount) (*domain.DepositIntent, error)
	Get(ctx context.Context, accountID string) (*domain.DepositIntent, error)
	Delete(ctx context.Context, tx *sql.Tx, accountID string) error
}

type depositChain interface {
	Receipt(ctx context.Context, ref string) (*chain.Receipt, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
}

// DepositService opens deposit intents and settles claimed deposits against
// the chain. All deposits arrive at one shared address; the randomized
// fractional suffix on the expected amount is what ties a transfer to an
// account.
type DepositService struct {
	db      *sql.DB
	intents intentRepo
	txs     txCreator
	chain   depositChain

	depositAddress   string
	minConfirmations uint64
}

func NewDepositService(
	db *sql.DB,
	intents intentRepo,
	txs txCreator,
	chainClient depositChain,
	depositAddress string,
	minConfirmations uint64,
) *DepositService {
	return &DepositService{
		db:               db,
		intents:          intents,
		txs:              txs,
		chain:            chainClient,
		depositAddress:   depositAddress,
		minConfirmations: minConfirmations,
	}
}

// Address returns the shared deposit address every intent pays into.
func (s *DepositService) Address() string { return s.depositAddress }

// OpenIntent records that the account is expected to send base plus a random
// four-digit fractional suffix, superseding any previous intent. The suffix
// keeps concurrently open intents distinguishable by amount alone.
func (s *DepositService) OpenIntent(ctx context.Context, accountID, base string) (*domain.DepositIntent, error) {
	amount, err := money.ParseToken(base)
	if err != nil {
		return nil, fmt.Errorf("OpenIntent: %w", err)
	}

	suffix := money.FromDecimal(decimal.New(int64(rand.IntN(9999)+1), -4))
	expected := amount.Add(suffix)

	intent, err := s.intents.Open(ctx, accountID, expected)
	if err != nil {
		return nil, fmt.Errorf("OpenIntent: %w", err)
	}
	return intent, nil
}

// Intent returns the open intent for the account, if any.
func (s *DepositService) Intent(ctx context.Context, accountID string) (*domain.DepositIntent, error) {
	intent, err := s.intents.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("Intent: %w", err)
	}
	return intent, nil
}

// Verify checks a claimed deposit against the open intent and the chain, and
// on success commits a completed deposit record exactly once. Failures before
// the commit leave no trace; ErrNotConfirmed and ErrInsufficientConfirmations
// are retryable with the same reference. The partial unique index on the
// chain reference makes concurrent verification of the same transfer settle
// exactly one record.
func (s *DepositService) Verify(ctx context.Context, accountID, ref string) (*domain.Transaction, error) {
	if !chain.IsValidReference(ref) {
		return nil, fmt.Errorf("Verify: %q: %w", ref, domain.ErrInvalidReference)
	}
	ref = strings.ToLower(ref)

	intent, err := s.intents.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Verify: %w", domain.ErrNoOpenIntent)
		}
		return nil, fmt.Errorf("Verify: %w", err)
	}

	receipt, err := s.chain.Receipt(ctx, ref)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptNotFound) {
			return nil, fmt.Errorf("Verify: %w", domain.ErrNotConfirmed)
		}
		return nil, fmt.Errorf("Verify: %w", err)
	}

	height, err := s.chain.CurrentBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("Verify: block height: %w", err)
	}
	var confirmations uint64
	if height >= receipt.BlockNumber {
		confirmations = height - receipt.BlockNumber
	}
	if confirmations < s.minConfirmations {
		return nil, fmt.Errorf("Verify: %d of %d: %w",
			confirmations, s.minConfirmations, domain.ErrInsufficientConfirmations)
	}

	transfer, ok := findTransferTo(receipt, s.depositAddress)
	if !ok {
		return nil, fmt.Errorf("Verify: %w", domain.ErrNoTransferFound)
	}

	if !transfer.Amount.Equal(intent.ExpectedAmount) {
		return nil, fmt.Errorf("Verify: got %s, expected %s: %w",
			transfer.Amount.FormatToken(), intent.ExpectedAmount.FormatToken(), domain.ErrAmountMismatch)
	}

	record, err := s.settle(ctx, accountID, ref, intent.ExpectedAmount, int64(confirmations))
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}

	logging.FromContext(ctx).Info("deposit settled",
		"account_id", accountID,
		"transaction_id", record.ID,
		"chain_tx_ref", ref,
		"amount", record.Amount.FormatToken(),
	)
	return record, nil
}

// settle atomically inserts the completed deposit and clears the intent.
func (s *DepositService) settle(ctx context.Context, accountID, ref string, amount money.Amount, confirmations int64) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settle: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	record := &domain.Transaction{
		Kind:          domain.TxKindDeposit,
		AccountID:     accountID,
		Amount:        amount,
		ChainTxRef:    &ref,
		Confirmations: &confirmations,
		Status:        domain.TxStatusCompleted,
		CompletedAt:   &now,
	}

	if err := s.txs.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	if err := s.intents.Delete(ctx, tx, accountID); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("settle: commit: %w", err)
	}
	return record, nil
}

func findTransferTo(receipt *chain.Receipt, address string) (chain.TransferEvent, bool) {
	for _, ev := range receipt.Transfers {
		if strings.EqualFold(ev.To, address) {
			return ev, true
		}
	}
	return chain.TransferEvent{}, false
}
