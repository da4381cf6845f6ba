package unit

import (
	"context"
	"errors"
	"testing"

	rewardledger "almoner/contexts/mutual-aid/reward-ledger"
	"almoner/contexts/mutual-aid/reward-ledger/application"
	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
	rewarderrors "almoner/contexts/mutual-aid/reward-ledger/domain/errors"
	"almoner/contexts/mutual-aid/reward-ledger/domain/reward"
)

func settleInput(voteID string) application.SettleVoteInput {
	return application.SettleVoteInput{
		VoteID:        voteID,
		RequestID:     "req-1",
		ValidatorID:   "validator-1",
		Decision:      "approve",
		SeverityLevel: 8,
		Amount:        99,
		Accuracy:      0.96,
	}
}

func TestSettleVoteCreditsAndReplays(t *testing.T) {
	module := rewardledger.NewInMemoryModule(nil)

	first, err := module.Service.SettleVote(context.Background(), settleInput("vote-1"))
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if first.Replayed || !first.Credited {
		t.Fatalf("fresh settlement must credit: %+v", first)
	}
	want := reward.Compute(8, 99, 0.96)
	if first.Entry.Amount != want.Total || first.Entry.Base != want.Base {
		t.Fatalf("entry amounts %v/%v, want %v/%v", first.Entry.Amount, first.Entry.Base, want.Total, want.Base)
	}
	if first.Entry.Status != entities.EntryStatusCredited {
		t.Fatalf("entry status = %s, want credited", first.Entry.Status)
	}

	replay, err := module.Service.SettleVote(context.Background(), settleInput("vote-1"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Replayed || replay.Entry.EntryID != first.Entry.EntryID {
		t.Fatalf("replay must return the stored entry: %+v", replay)
	}
	if got := module.Store.CreditedTotal("validator-1"); got != want.Total {
		t.Fatalf("double credit detected: balance %v, want %v", got, want.Total)
	}
}

func TestSettleVoteLeavesPendingCreditForRetrier(t *testing.T) {
	module := rewardledger.NewInMemoryModule(nil)
	module.Store.FailCredits(true)

	settlement, err := module.Service.SettleVote(context.Background(), settleInput("vote-2"))
	if err != nil {
		t.Fatalf("settle must accept the entry despite credit failure: %v", err)
	}
	if settlement.Credited {
		t.Fatalf("credit cannot succeed while profiles are failing")
	}
	if settlement.Entry.Status != entities.EntryStatusCreditPending {
		t.Fatalf("entry status = %s, want credit_pending", settlement.Entry.Status)
	}

	// Profiles come back and the retrier drains the backlog.
	module.Store.FailCredits(false)
	credited, err := module.Retrier.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("retrier failed: %v", err)
	}
	if credited != 1 {
		t.Fatalf("retrier credited %d entries, want 1", credited)
	}
	want := reward.Compute(8, 99, 0.96).Total
	if got := module.Store.CreditedTotal("validator-1"); got != want {
		t.Fatalf("balance %v, want %v", got, want)
	}

	// Nothing left for the next cycle.
	credited, err = module.Retrier.RunOnce(context.Background())
	if err != nil || credited != 0 {
		t.Fatalf("second cycle should be empty, got %d, %v", credited, err)
	}
}

func TestSettleVoteValidatesInput(t *testing.T) {
	module := rewardledger.NewInMemoryModule(nil)
	_, err := module.Service.SettleVote(context.Background(), application.SettleVoteInput{
		RequestID:   "req-1",
		ValidatorID: "validator-1",
	})
	if !errors.Is(err, rewarderrors.ErrInvalidSettlementInput) {
		t.Fatalf("missing vote id must fail, got %v", err)
	}
}

func TestListValidatorEntriesClampsLimit(t *testing.T) {
	module := rewardledger.NewInMemoryModule(nil)
	for _, voteID := range []string{"vote-a", "vote-b", "vote-c"} {
		if _, err := module.Service.SettleVote(context.Background(), settleInput(voteID)); err != nil {
			t.Fatalf("settle %s failed: %v", voteID, err)
		}
	}

	entries, err := module.Service.ListValidatorEntries(context.Background(), "validator-1", -5)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected all three entries under the default limit, got %d", len(entries))
	}
}
