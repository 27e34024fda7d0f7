package handler

import (
	"context"
	"net/http"

	"github.com/settleco/usdt-ledger/internal/logging"
	"github.com/settleco/usdt-ledger/internal/money"
)

type treasuryChain interface {
	HotWalletAddress() string
	Balance(ctx context.Context, address string) (money.Amount, error)
}

// TreasuryHandler reports the hot wallet state so operators can see whether
// pending withdrawals are covered.
type TreasuryHandler struct {
	chain treasuryChain
}

func NewTreasuryHandler(chain treasuryChain) *TreasuryHandler {
	return &TreasuryHandler{chain: chain}
}

func (h *TreasuryHandler) HotWallet(w http.ResponseWriter, r *http.Request) {
	address := h.chain.HotWalletAddress()

	balance, err := h.chain.Balance(r.Context(), address)
	if err != nil {
		logging.FromContext(r.Context()).Error("hot wallet balance lookup failed", "error", err)
		RespondAppError(w, ErrChainUnavailable, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{
		"address": address,
		"balance": balance.FormatToken(),
	})
}
