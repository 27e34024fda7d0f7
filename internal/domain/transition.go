package domain

import "time"

// StatusChange carries a target status together with exactly the fields that
// are valid for that status. Build one with the constructors below; the store
// applies it in a single UPDATE guarded by the expected current status, so a
// record can never hold sub-fields inconsistent with its status, not even
// transiently.
type StatusChange struct {
	From   TxStatus
	To     TxStatus
	fields statusFields
}

type statusFields struct {
	ChainTxRef    *string
	Confirmations *int64
	CompletedAt   *time.Time
	AdminNote     *string
}

func (c StatusChange) ChainTxRef() *string     { return c.fields.ChainTxRef }
func (c StatusChange) Confirmations() *int64   { return c.fields.Confirmations }
func (c StatusChange) CompletedAt() *time.Time { return c.fields.CompletedAt }
func (c StatusChange) AdminNote() *string      { return c.fields.AdminNote }

// MarkProcessing moves a withdrawal from Pending to Processing. A withdrawal
// may only be processed once.
func MarkProcessing() StatusChange {
	return StatusChange{From: TxStatusPending, To: TxStatusProcessing}
}

// CompleteWithdrawal finishes a Processing withdrawal whose transfer was
// mined. Confirmations is at least 1 by then.
func CompleteWithdrawal(chainTxRef string, confirmations int64, completedAt time.Time) StatusChange {
	return StatusChange{
		From: TxStatusProcessing,
		To:   TxStatusCompleted,
		fields: statusFields{
			ChainTxRef:    &chainTxRef,
			Confirmations: &confirmations,
			CompletedAt:   &completedAt,
		},
	}
}

// FailWithdrawal marks a Processing withdrawal as terminally failed with the
// failure reason preserved for audit. It is never retried automatically.
func FailWithdrawal(reason string) StatusChange {
	return StatusChange{
		From:   TxStatusProcessing,
		To:     TxStatusFailed,
		fields: statusFields{AdminNote: &reason},
	}
}

// SettleExchange completes a Pending exchange by administrative decision.
func SettleExchange(note string, completedAt time.Time) StatusChange {
	c := StatusChange{
		From:   TxStatusPending,
		To:     TxStatusCompleted,
		fields: statusFields{CompletedAt: &completedAt},
	}
	if note != "" {
		c.fields.AdminNote = &note
	}
	return c
}

// RejectExchange fails a Pending exchange by administrative decision.
func RejectExchange(note string) StatusChange {
	c := StatusChange{From: TxStatusPending, To: TxStatusFailed}
	if note != "" {
		c.fields.AdminNote = &note
	}
	return c
}
