package workers

import (
	"context"
	"log/slog"

	application "almoner/contexts/mutual-aid/reward-ledger/application"
	"almoner/contexts/mutual-aid/reward-ledger/ports"
)

const defaultRetryBatch = 50

// CreditRetrier re-drives ledger entries whose profile credit failed at
// settlement time. Safe to run concurrently with settlements: ApplyCredit is
// idempotent per entry and MarkCredited is a no-op once flipped.
type CreditRetrier struct {
	Ledger    ports.LedgerRepository
	Profiles  ports.ValidatorProfileUpdater
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (w CreditRetrier) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(w.Logger)
	batch := w.BatchSize
	if batch <= 0 {
		batch = defaultRetryBatch
	}

	pending, err := w.Ledger.ListPendingCredits(ctx, batch)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, entry := range pending {
		approved := entry.Decision == "approve"
		if err := w.Profiles.ApplyCredit(ctx, entry.ValidatorID, entry.EntryID, entry.Amount, approved); err != nil {
			logger.Warn("pending credit retry failed",
				"event", "reward_credit_retry_failed",
				"module", "mutual-aid/reward-ledger",
				"layer", "worker",
				"entry_id", entry.EntryID,
				"validator_id", entry.ValidatorID,
				"error", err.Error(),
			)
			continue
		}
		if err := w.Ledger.MarkCredited(ctx, entry.EntryID, w.Clock.Now().UTC()); err != nil {
			logger.Warn("pending credit mark failed",
				"event", "reward_credit_mark_retry_failed",
				"module", "mutual-aid/reward-ledger",
				"layer", "worker",
				"entry_id", entry.EntryID,
				"error", err.Error(),
			)
			continue
		}
		credited++
	}
	if credited > 0 {
		logger.Info("pending reward credits applied",
			"event", "reward_credits_retried",
			"module", "mutual-aid/reward-ledger",
			"layer", "worker",
			"count", credited,
		)
	}
	return credited, nil
}
