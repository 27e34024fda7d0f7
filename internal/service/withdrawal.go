package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/settleco/usdt-ledger/internal/chain"
	"github.com/settleco/usdt-ledger/internal/domain"
	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

type withdrawalStore interface {
	txCreator
	txReader
	UpdateStatus(ctx context.Context, id int64, change domain.StatusChange) error
	SetChainRef(ctx context.Context, id int64, ref string) error
	FindPendingByKind(ctx context.Context, kind domain.TxKind, limit int) ([]domain.Transaction, error)
}

type withdrawalChain interface {
	SubmitTransfer(ctx context.Context, to string, amount money.Amount) (string, error)
	WaitMined(ctx context.Context, ref string) (*chain.Receipt, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	IsValidAddress(addr string) bool
}

// WithdrawalService owns the withdrawal state machine:
// Pending -> Processing -> Completed | Failed. Funds are reserved when the
// Pending record is created; the chain transfer happens without any ledger
// lock held.
type WithdrawalService struct {
	db       *sql.DB
	accounts accountLocker
	balances balanceReader
	txs      withdrawalStore
	chain    withdrawalChain
	fee      money.Amount
}

func NewWithdrawalService(
	db *sql.DB,
	accounts accountLocker,
	balances balanceReader,
	txs withdrawalStore,
	chainClient withdrawalChain,
	fee money.Amount,
) *WithdrawalService {
	return &WithdrawalService{
		db:       db,
		accounts: accounts,
		balances: balances,
		txs:      txs,
		chain:    chainClient,
		fee:      fee,
	}
}

// Create validates the request and reserves amount plus the service fee by
// inserting the Pending record. Two concurrent requests cannot jointly
// overdraw the account: the check and the insert share one transaction under
// the account row lock.
func (s *WithdrawalService) Create(ctx context.Context, accountID, toAddress, rawAmount string) (*domain.Transaction, error) {
	amount, err := money.ParseToken(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if !s.chain.IsValidAddress(toAddress) {
		return nil, fmt.Errorf("Create: %q: %w", toAddress, domain.ErrInvalidAddress)
	}

	fee := s.fee
	record := &domain.Transaction{
		Kind:      domain.TxKindWithdrawal,
		AccountID: accountID,
		Amount:    amount,
		ToAddress: &toAddress,
		Fee:       &fee,
		Status:    domain.TxStatusPending,
	}

	if err := reserveOutgoing(ctx, s.db, s.accounts, s.balances, s.txs, record, amount.Add(fee)); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal reserved",
		"account_id", accountID,
		"transaction_id", record.ID,
		"amount", amount.FormatToken(),
		"fee", fee.FormatToken(),
	)
	return record, nil
}

// Process drives one Pending withdrawal to a terminal state. A record may
// only be processed once; the Pending->Processing transition is the gate.
// Every failure after that gate lands in Failed with the reason kept in the
// admin note; there is no automatic retry, a human decides what happens next.
func (s *WithdrawalService) Process(ctx context.Context, id int64) (*domain.Transaction, error) {
	record, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	if record.Kind != domain.TxKindWithdrawal || record.ToAddress == nil {
		return nil, fmt.Errorf("Process: record %d is not a withdrawal: %w", id, domain.ErrInvalidState)
	}

	if err := s.txs.UpdateStatus(ctx, id, domain.MarkProcessing()); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	log := logging.FromContext(ctx).With("transaction_id", id, "account_id", record.AccountID)

	ref, err := s.chain.SubmitTransfer(ctx, *record.ToAddress, record.Amount)
	if err != nil {
		s.fail(ctx, log, id, fmt.Sprintf("submission failed: %v", err))
		return nil, fmt.Errorf("Process: %w: %w", domain.ErrChainSubmission, err)
	}

	// Persist the reference before waiting: a crash between here and mining
	// can then be reconciled against the chain instead of double-paying.
	if err := s.txs.SetChainRef(ctx, id, ref); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	log = log.With("chain_tx_ref", ref)
	log.Info("withdrawal submitted")

	receipt, err := s.chain.WaitMined(ctx, ref)
	if err != nil {
		s.fail(ctx, log, id, fmt.Sprintf("transfer %s not mined: %v", ref, err))
		return nil, fmt.Errorf("Process: %w: %w", domain.ErrChainSubmission, err)
	}

	confirmations := s.confirmationsFor(ctx, receipt)
	if err := s.txs.UpdateStatus(ctx, id, domain.CompleteWithdrawal(ref, confirmations, time.Now().UTC())); err != nil {
		if errors.Is(err, domain.ErrDuplicateSettlement) {
			s.fail(ctx, log, id, fmt.Sprintf("transfer %s already settled by another record", ref))
		}
		return nil, fmt.Errorf("Process: %w", err)
	}

	log.Info("withdrawal completed", "confirmations", confirmations)

	updated, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	return updated, nil
}

func (s *WithdrawalService) fail(ctx context.Context, log *slog.Logger, id int64, reason string) {
	log.Error("withdrawal failed", "reason", reason)
	if err := s.txs.UpdateStatus(ctx, id, domain.FailWithdrawal(reason)); err != nil {
		log.Error("could not mark withdrawal failed", "error", err)
	}
}

// confirmationsFor derives the confirmation count at completion time. The
// transfer is mined by now, so it is at least 1.
func (s *WithdrawalService) confirmationsFor(ctx context.Context, receipt *chain.Receipt) int64 {
	height, err := s.chain.CurrentBlockHeight(ctx)
	if err != nil || height < receipt.BlockNumber {
		return 1
	}
	confirmations := int64(height-receipt.BlockNumber) + 1
	if confirmations < 1 {
		confirmations = 1
	}
	return confirmations
}
