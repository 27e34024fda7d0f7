package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Deposit verification.
	ErrInvalidReference          = errors.New("invalid chain transaction reference")
	ErrNoOpenIntent              = errors.New("no open deposit intent")
	ErrNotConfirmed              = errors.New("transfer not yet mined")
	ErrInsufficientConfirmations = errors.New("not enough confirmations")
	ErrNoTransferFound           = errors.New("no transfer to the deposit address")
	ErrAmountMismatch            = errors.New("transferred amount does not match the intent")
	ErrDuplicateSettlement       = errors.New("chain transaction already settled")

	// Outgoing value.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidState        = errors.New("record is not in a state that allows this transition")
	ErrChainSubmission     = errors.New("chain submission failed")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrRateNotSet          = errors.New("exchange rate not set")
)
