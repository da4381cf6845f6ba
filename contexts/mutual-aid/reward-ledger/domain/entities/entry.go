package entities

import "time"

type EntryStatus string

const (
	// EntryStatusCredited means the validator's profile stats reflect this
	// entry.
	EntryStatusCredited EntryStatus = "credited"
	// EntryStatusCreditPending means the ledger row exists but the profile
	// update failed; the retrier re-drives it.
	EntryStatusCreditPending EntryStatus = "credit_pending"
)

// RewardEntry is one immutable ledger row, keyed to exactly one vote.
type RewardEntry struct {
	EntryID       string
	VoteID        string
	RequestID     string
	ValidatorID   string
	Decision      string
	Amount        float64
	Base          float64
	SeverityMult  float64
	AmountMult    float64
	AccuracyBonus float64
	Status        EntryStatus
	CreatedAt     time.Time
	CreditedAt    *time.Time
}
