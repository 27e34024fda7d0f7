package domain

import "time"

// Account is created on first interaction with the front-end and never
// deleted. The ID is the external identifier the front-end authenticates.
type Account struct {
	ID          string
	DisplayName *string
	CreatedAt   time.Time
	LastSeenAt  time.Time
}
