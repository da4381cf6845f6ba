package ports

import (
	"context"
	"time"

	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
)

// LedgerRepository persists reward entries. InsertEntry is idempotent on
// VoteID: a concurrent or repeated insert for the same vote returns the
// existing row with replayed=true instead of an error.
type LedgerRepository interface {
	InsertEntry(ctx context.Context, entry entities.RewardEntry) (entities.RewardEntry, bool, error)
	GetEntryByVote(ctx context.Context, voteID string) (entities.RewardEntry, error)
	ListEntriesByValidator(ctx context.Context, validatorID string, limit int) ([]entities.RewardEntry, error)
	ListPendingCredits(ctx context.Context, limit int) ([]entities.RewardEntry, error)
	MarkCredited(ctx context.Context, entryID string, creditedAt time.Time) error
}

// ValidatorProfileUpdater is the write side of validator stats, owned by the
// external profile service. ApplyCredit bumps total validations and balance
// for one settled entry; implementations are idempotent per entry.
type ValidatorProfileUpdater interface {
	ApplyCredit(ctx context.Context, validatorID string, entryID string, amount float64, approved bool) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
