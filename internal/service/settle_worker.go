package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/settleco/usdt-ledger/internal/domain"
)

const workerBatchSize = 10

// SettleWorker drains pending withdrawals on an interval and drives each one
// through the withdrawal state machine. The Pending->Processing guard makes
// it safe to run alongside manually triggered processing: whoever transitions
// first wins, the other sees ErrInvalidState.
type SettleWorker struct {
	withdrawals *WithdrawalService
	txs         withdrawalStore
	logger      *slog.Logger
	interval    time.Duration
}

func NewSettleWorker(withdrawals *WithdrawalService, txs withdrawalStore, logger *slog.Logger, interval time.Duration) *SettleWorker {
	return &SettleWorker{
		withdrawals: withdrawals,
		txs:         txs,
		logger:      logger,
		interval:    interval,
	}
}

func (w *SettleWorker) Start(ctx context.Context) {
	w.logger.Info("settle worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settle worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *SettleWorker) poll(ctx context.Context) {
	pending, err := w.txs.FindPendingByKind(ctx, domain.TxKindWithdrawal, workerBatchSize)
	if err != nil {
		w.logger.Error("failed to fetch pending withdrawals", "error", err)
		return
	}

	for _, record := range pending {
		if _, err := w.withdrawals.Process(ctx, record.ID); err != nil {
			// Lost the race to a manual trigger; nothing to do.
			if errors.Is(err, domain.ErrInvalidState) {
				continue
			}
			w.logger.Error("failed to process withdrawal",
				"transaction_id", record.ID,
				"error", err,
			)
		}
	}
}
