package application

import (
	"context"
	"log/slog"
	"strings"

	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/reward-ledger/domain/errors"
	"almoner/contexts/mutual-aid/reward-ledger/domain/reward"
	"almoner/contexts/mutual-aid/reward-ledger/ports"
)

type SettleVoteInput struct {
	VoteID        string
	RequestID     string
	ValidatorID   string
	Decision      string
	SeverityLevel int
	Amount        float64
	Accuracy      float64
}

// Settlement reports the ledger entry for a vote. Replayed means the entry
// already existed; Credited means the profile update has been applied.
type Settlement struct {
	Entry    entities.RewardEntry
	Replayed bool
	Credited bool
}

// RewardService turns accepted votes into ledger entries and profile
// credits.
type RewardService struct {
	Ledger   ports.LedgerRepository
	Profiles ports.ValidatorProfileUpdater
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// Quote prices a prospective vote without touching the ledger.
func (s RewardService) Quote(_ context.Context, severityLevel int, amount float64, accuracy float64) (reward.Breakdown, error) {
	return reward.Compute(severityLevel, amount, accuracy), nil
}

// SettleVote writes the ledger entry for one vote and credits the
// validator's profile. The entry insert is the idempotency anchor: replays
// return the stored row untouched. A profile-update failure leaves the entry
// credit_pending for the retrier and is never surfaced as a settlement
// error.
func (s RewardService) SettleVote(ctx context.Context, input SettleVoteInput) (Settlement, error) {
	logger := ResolveLogger(s.Logger)

	voteID := strings.TrimSpace(input.VoteID)
	validatorID := strings.TrimSpace(input.ValidatorID)
	if voteID == "" || validatorID == "" {
		return Settlement{}, domainerrors.ErrInvalidSettlementInput
	}

	entryID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return Settlement{}, err
	}
	breakdown := reward.Compute(input.SeverityLevel, input.Amount, input.Accuracy)
	entry := entities.RewardEntry{
		EntryID:       entryID,
		VoteID:        voteID,
		RequestID:     strings.TrimSpace(input.RequestID),
		ValidatorID:   validatorID,
		Decision:      strings.TrimSpace(input.Decision),
		Amount:        breakdown.Total,
		Base:          breakdown.Base,
		SeverityMult:  breakdown.SeverityMult,
		AmountMult:    breakdown.AmountMult,
		AccuracyBonus: breakdown.AccuracyBonus,
		Status:        entities.EntryStatusCreditPending,
		CreatedAt:     s.Clock.Now().UTC(),
	}

	stored, replayed, err := s.Ledger.InsertEntry(ctx, entry)
	if err != nil {
		return Settlement{}, err
	}
	if replayed {
		return Settlement{
			Entry:    stored,
			Replayed: true,
			Credited: stored.Status == entities.EntryStatusCredited,
		}, nil
	}

	credited := s.credit(ctx, stored)
	if credited {
		stored.Status = entities.EntryStatusCredited
	}
	logger.Info("validation reward settled",
		"event", "reward_settled",
		"module", "mutual-aid/reward-ledger",
		"layer", "application",
		"entry_id", stored.EntryID,
		"vote_id", stored.VoteID,
		"validator_id", stored.ValidatorID,
		"amount", stored.Amount,
		"credited", credited,
	)
	return Settlement{Entry: stored, Credited: credited}, nil
}

// ListValidatorEntries returns the most recent ledger rows for a validator.
func (s RewardService) ListValidatorEntries(ctx context.Context, validatorID string, limit int) ([]entities.RewardEntry, error) {
	validatorID = strings.TrimSpace(validatorID)
	if validatorID == "" {
		return nil, domainerrors.ErrInvalidSettlementInput
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.Ledger.ListEntriesByValidator(ctx, validatorID, limit)
}

// credit applies the profile-stat update and flips the entry to credited.
// Both halves are retried from credit_pending on failure.
func (s RewardService) credit(ctx context.Context, entry entities.RewardEntry) bool {
	logger := ResolveLogger(s.Logger)
	approved := entry.Decision == "approve"
	if err := s.Profiles.ApplyCredit(ctx, entry.ValidatorID, entry.EntryID, entry.Amount, approved); err != nil {
		logger.Warn("profile credit failed; entry left pending",
			"event", "reward_credit_deferred",
			"module", "mutual-aid/reward-ledger",
			"layer", "application",
			"entry_id", entry.EntryID,
			"validator_id", entry.ValidatorID,
			"error", err.Error(),
		)
		return false
	}
	if err := s.Ledger.MarkCredited(ctx, entry.EntryID, s.Clock.Now().UTC()); err != nil {
		logger.Warn("credited entry not marked; retrier will replay",
			"event", "reward_credit_mark_failed",
			"module", "mutual-aid/reward-ledger",
			"layer", "application",
			"entry_id", entry.EntryID,
			"error", err.Error(),
		)
		return false
	}
	return true
}
