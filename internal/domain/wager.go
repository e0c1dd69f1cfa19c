package domain

import "time"

// Wager is a spectator's stake on one side of a debate. Wagers may only be
// placed while the session is pending and are settled exactly once.
type Wager struct {
	ID        string
	DebateID  string
	WagererID string
	Amount    int64 // integer currency units
	Side      Side
	Settled   bool
	Payout    int64
	CreatedAt time.Time
}

// Payout is the settlement outcome for one wager. Amounts are handed to an
// external ledger for actual transfer.
type Payout struct {
	WagerID   string
	WagererID string
	Amount    int64
}
