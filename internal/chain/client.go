// Package chain abstracts the blockchain the ledger settles against. Client
// is the full capability set; consumers declare the slice of it they need.
// The go-ethereum implementation lives in this package, test doubles live
// with the tests that use them.
package chain

import (
	"context"
	"errors"
	"regexp"

	"github.com/settleco/usdt-ledger/internal/money"
)

// ErrReceiptNotFound is returned while a transfer is unknown to the chain or
// not yet mined. Callers may retry with the same reference.
var ErrReceiptNotFound = errors.New("receipt not found")

// TransferEvent is one token transfer extracted from a receipt.
type TransferEvent struct {
	From   string
	To     string
	Amount money.Amount
}

// Receipt describes a mined transaction: where it landed and the token
// transfers it carried.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Transfers   []TransferEvent
}

// Client is the capability the settlement core is injected with. Submission
// is expected to sequence nonces safely; two concurrent SubmitTransfer calls
// must not reuse a nonce.
type Client interface {
	// Balance returns the token balance of an address.
	Balance(ctx context.Context, address string) (money.Amount, error)
	// Receipt looks a transfer up by reference. ErrReceiptNotFound while unmined.
	Receipt(ctx context.Context, ref string) (*Receipt, error)
	// CurrentBlockHeight returns the latest block number.
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	// SubmitTransfer signs and broadcasts an outbound token transfer and
	// returns its chain reference.
	SubmitTransfer(ctx context.Context, to string, amount money.Amount) (string, error)
	// WaitMined blocks until the referenced transfer is mined, or the context
	// is done.
	WaitMined(ctx context.Context, ref string) (*Receipt, error)
	// IsValidAddress reports whether addr is a well-formed recipient address.
	IsValidAddress(addr string) bool
}

var refPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsValidReference reports whether ref is a well-formed transaction hash.
func IsValidReference(ref string) bool {
	return refPattern.MatchString(ref)
}
