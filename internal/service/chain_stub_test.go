package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/settleco/usdt-ledger/internal/chain"
	"github.com/settleco/usdt-ledger/internal/money"
)

// stubChain satisfies both chain interfaces the services consume. Receipts
// are keyed by lowercase reference, matching what the real client returns.
type stubChain struct {
	receipts map[string]*chain.Receipt
	height   uint64

	submitRef string
	submitErr error
	mineErr   error

	submitted []submittedTransfer
}

type submittedTransfer struct {
	To     string
	Amount money.Amount
}

func newStubChain(height uint64) *stubChain {
	return &stubChain{
		receipts: make(map[string]*chain.Receipt),
		height:   height,
	}
}

func (s *stubChain) addReceipt(ref string, block uint64, transfers ...chain.TransferEvent) {
	s.receipts[strings.ToLower(ref)] = &chain.Receipt{
		TxHash:      strings.ToLower(ref),
		BlockNumber: block,
		Transfers:   transfers,
	}
}

func (s *stubChain) Receipt(ctx context.Context, ref string) (*chain.Receipt, error) {
	r, ok := s.receipts[strings.ToLower(ref)]
	if !ok {
		return nil, fmt.Errorf("stub: %w", chain.ErrReceiptNotFound)
	}
	return r, nil
}

func (s *stubChain) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	return s.height, nil
}

func (s *stubChain) SubmitTransfer(ctx context.Context, to string, amount money.Amount) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.submitted = append(s.submitted, submittedTransfer{To: to, Amount: amount})
	return s.submitRef, nil
}

func (s *stubChain) WaitMined(ctx context.Context, ref string) (*chain.Receipt, error) {
	if s.mineErr != nil {
		return nil, s.mineErr
	}
	if r, ok := s.receipts[strings.ToLower(ref)]; ok {
		return r, nil
	}
	return &chain.Receipt{TxHash: strings.ToLower(ref), BlockNumber: s.height}, nil
}

func (s *stubChain) IsValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && len(addr) == 42
}

func tok(t *testing.T, raw string) money.Amount {
	t.Helper()
	a, err := money.ParseToken(raw)
	if err != nil {
		t.Fatalf("parse token amount %q: %v", raw, err)
	}
	return a
}
