package unit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	rewardledger "almoner/contexts/mutual-aid/reward-ledger"
	rewardapp "almoner/contexts/mutual-aid/reward-ledger/application"
	"almoner/contexts/mutual-aid/reward-ledger/domain/reward"
	validationengine "almoner/contexts/mutual-aid/validation-engine"
	"almoner/contexts/mutual-aid/validation-engine/application/queries"
	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	validationerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	validationports "almoner/contexts/mutual-aid/validation-engine/ports"
	httptransport "almoner/contexts/mutual-aid/validation-engine/transport/http"
)

const voteReason = "documents and receipts line up with the stated hardship"

// ledgerRewardPolicy adapts the reward-ledger service to the validation
// engine's RewardPolicy port, the same way the composition root does.
type ledgerRewardPolicy struct {
	service rewardapp.RewardService
}

func (p ledgerRewardPolicy) Quote(ctx context.Context, severityLevel int, amount float64, accuracy float64) (validationports.RewardQuote, error) {
	breakdown, err := p.service.Quote(ctx, severityLevel, amount, accuracy)
	if err != nil {
		return validationports.RewardQuote{}, err
	}
	return validationports.RewardQuote{
		Base:       breakdown.Base,
		Multiplier: breakdown.AccuracyBonus,
		Total:      breakdown.Total,
	}, nil
}

func (p ledgerRewardPolicy) Settle(ctx context.Context, input validationports.RewardSettlementInput) (validationports.RewardSettlement, error) {
	settlement, err := p.service.SettleVote(ctx, rewardapp.SettleVoteInput{
		VoteID:        input.VoteID,
		RequestID:     input.RequestID,
		ValidatorID:   input.ValidatorID,
		Decision:      input.Decision,
		SeverityLevel: input.SeverityLevel,
		Amount:        input.Amount,
		Accuracy:      input.Accuracy,
	})
	if err != nil {
		return validationports.RewardSettlement{}, err
	}
	entry := settlement.Entry
	return validationports.RewardSettlement{
		EntryID:       entry.EntryID,
		VoteID:        entry.VoteID,
		Amount:        entry.Amount,
		Base:          entry.Base,
		SeverityMult:  entry.SeverityMult,
		AmountMult:    entry.AmountMult,
		AccuracyBonus: entry.AccuracyBonus,
		Credited:      settlement.Credited,
		Replayed:      settlement.Replayed,
	}, nil
}

func newValidationHarness() (validationengine.Module, rewardledger.Module) {
	rewards := rewardledger.NewInMemoryModule(nil)
	module := validationengine.NewInMemoryModule(ledgerRewardPolicy{service: rewards.Service}, nil)
	return module, rewards
}

func seedOpenRequest(module validationengine.Module, requestID string, requesterID string, severity int, amount float64) {
	module.Store.SetRequest(entities.AidRequestView{
		RequestID:     requestID,
		RequesterID:   requesterID,
		Amount:        amount,
		SeverityLevel: severity,
		Category:      "medical",
		Urgency:       "high",
		Status:        "pending",
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	})
}

func seedValidator(module validationengine.Module, validatorID string, accuracy float64) {
	module.Store.SetValidatorSnapshot(entities.ValidatorSnapshot{
		ValidatorID:        validatorID,
		ReputationScore:    4.0,
		ValidationAccuracy: accuracy,
		IsActiveValidator:  true,
		TotalValidations:   40,
	})
}

func submitVote(t *testing.T, module validationengine.Module, validatorID string, requestID string, decision string) httptransport.SubmitValidationResponse {
	t.Helper()
	resp, err := module.Handler.SubmitValidationHandler(context.Background(), validatorID, requestID, "127.0.0.1", httptransport.SubmitValidationRequest{
		RequestID:       requestID,
		Decision:        decision,
		ConfidenceScore: 0.9,
		Reason:          voteReason,
	})
	if err != nil {
		t.Fatalf("submit vote failed: %v", err)
	}
	return resp
}

func TestValidationQuorumApprovesRequest(t *testing.T) {
	module, rewards := newValidationHarness()
	seedOpenRequest(module, "req-1", "member-9", 3, 20) // quorum 2
	seedValidator(module, "validator-1", 0.92)
	seedValidator(module, "validator-2", 0.92)

	first := submitVote(t, module, "validator-1", "req-1", "approve")
	if first.Resolved {
		t.Fatalf("first approval of two must not resolve")
	}
	if first.ConsensusState.Required != 2 || first.ConsensusState.Approvals != 1 {
		t.Fatalf("unexpected consensus state: %+v", first.ConsensusState)
	}

	second := submitVote(t, module, "validator-2", "req-1", "approve")
	if !second.Resolved || second.ConsensusState.Outcome != "approved" {
		t.Fatalf("second approval must resolve approved: %+v", second)
	}

	history := module.Store.StatusHistory("req-1")
	if len(history) != 1 || history[0].FromStatus != "pending" || history[0].ToStatus != "approved" || history[0].ChangedBy != "system" {
		t.Fatalf("unexpected status history: %+v", history)
	}
	funding := module.Store.FundingCalls()
	if len(funding) != 1 || funding[0] != "req-1" {
		t.Fatalf("expected one funding initiation, got %v", funding)
	}
	notifications := module.Store.Notifications()
	if len(notifications) != 1 || notifications[0] != "req-1:approved" {
		t.Fatalf("expected approval notification, got %v", notifications)
	}

	if second.Reward == nil || !second.Reward.Credited {
		t.Fatalf("expected credited reward, got %+v", second.Reward)
	}
	want := reward.Compute(3, 20, 0.92).Total
	if second.Reward.Amount != want {
		t.Fatalf("reward amount = %v, want %v", second.Reward.Amount, want)
	}
	if got := rewards.Store.CreditedTotal("validator-2"); got != want {
		t.Fatalf("ledger credited %v, want %v", got, want)
	}
}

func TestValidationEarlyReject(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-2", "member-9", 3, 20)
	seedValidator(module, "validator-1", 0.85)
	seedValidator(module, "validator-2", 0.85)

	submitVote(t, module, "validator-1", "req-2", "reject")
	second := submitVote(t, module, "validator-2", "req-2", "reject")
	if !second.Resolved || second.ConsensusState.Outcome != "rejected" {
		t.Fatalf("two rejections at quorum two must resolve rejected: %+v", second)
	}
	if len(module.Store.FundingCalls()) != 0 {
		t.Fatalf("rejected request must not trigger funding")
	}
	notifications := module.Store.Notifications()
	if len(notifications) != 1 || notifications[0] != "req-2:rejected" {
		t.Fatalf("expected rejection notification, got %v", notifications)
	}
}

func TestValidationRejectsVotesOnClosedRequest(t *testing.T) {
	module, rewards := newValidationHarness()
	seedValidator(module, "validator-1", 0.85)
	module.Store.SetRequest(entities.AidRequestView{
		RequestID:     "req-3",
		RequesterID:   "member-9",
		Amount:        20,
		SeverityLevel: 3,
		Status:        "approved",
		CreatedAt:     time.Now().UTC(),
	})

	_, err := module.Handler.SubmitValidationHandler(context.Background(), "validator-1", "req-3", "127.0.0.1", httptransport.SubmitValidationRequest{
		RequestID:       "req-3",
		Decision:        "approve",
		ConfidenceScore: 0.9,
		Reason:          voteReason,
	})
	if !errors.Is(err, validationerrors.ErrInvalidRequestStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
	var statusErr validationerrors.StatusError
	if !errors.As(err, &statusErr) || statusErr.CurrentStatus != "approved" {
		t.Fatalf("expected current status in error, got %v", err)
	}
	if module.Store.VoteCount("req-3") != 0 {
		t.Fatalf("rejected submission must not persist a vote")
	}
	entries, _ := rewards.Service.ListValidatorEntries(context.Background(), "validator-1", 10)
	if len(entries) != 0 {
		t.Fatalf("rejected submission must not settle a reward, got %d entries", len(entries))
	}
}

func TestValidationSelfVoteBlocked(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-4", "member-1", 3, 20)
	seedValidator(module, "member-1", 0.95)

	_, err := module.Handler.SubmitValidationHandler(context.Background(), "member-1", "req-4", "127.0.0.1", httptransport.SubmitValidationRequest{
		RequestID:       "req-4",
		Decision:        "approve",
		ConfidenceScore: 0.9,
		Reason:          voteReason,
	})
	if !errors.Is(err, validationerrors.ErrCannotValidateOwnRequest) {
		t.Fatalf("expected self-vote rejection, got %v", err)
	}
}

func TestValidationDuplicateVoteBlocked(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-5", "member-9", 6, 20) // quorum 3, stays open
	seedValidator(module, "validator-1", 0.85)

	submitVote(t, module, "validator-1", "req-5", "approve")
	_, err := module.Handler.SubmitValidationHandler(context.Background(), "validator-1", "req-5", "127.0.0.1", httptransport.SubmitValidationRequest{
		RequestID:       "req-5",
		Decision:        "reject",
		ConfidenceScore: 0.9,
		Reason:          voteReason,
	})
	if !errors.Is(err, validationerrors.ErrAlreadyValidated) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if module.Store.VoteCount("req-5") != 1 {
		t.Fatalf("expected exactly one persisted vote")
	}
}

func TestValidationEligibilityGate(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-6", "member-9", 3, 20)
	module.Store.SetValidatorSnapshot(entities.ValidatorSnapshot{
		ValidatorID:        "validator-weak",
		ReputationScore:    1.2,
		ValidationAccuracy: 0.95,
		IsActiveValidator:  true,
	})

	_, err := module.Handler.SubmitValidationHandler(context.Background(), "validator-weak", "req-6", "127.0.0.1", httptransport.SubmitValidationRequest{
		RequestID:       "req-6",
		Decision:        "approve",
		ConfidenceScore: 0.9,
		Reason:          voteReason,
	})
	var qualErr validationerrors.QualificationError
	if !errors.As(err, &qualErr) {
		t.Fatalf("expected qualification error, got %v", err)
	}
	if len(qualErr.Report.UnmetRequirements) != 1 || qualErr.Report.UnmetRequirements[0] != "reputation_score" {
		t.Fatalf("unexpected unmet requirements: %v", qualErr.Report.UnmetRequirements)
	}
}

func TestValidationInputValidation(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-7", "member-9", 3, 20)
	seedValidator(module, "validator-1", 0.9)

	bad := []httptransport.SubmitValidationRequest{
		{RequestID: "req-7", Decision: "maybe", ConfidenceScore: 0.9, Reason: voteReason},
		{RequestID: "req-7", Decision: "approve", ConfidenceScore: 0.05, Reason: voteReason},
		{RequestID: "req-7", Decision: "approve", ConfidenceScore: 1.2, Reason: voteReason},
		{RequestID: "req-7", Decision: "approve", ConfidenceScore: 0.9, Reason: "too short"},
		{RequestID: "req-7", Decision: "approve", ConfidenceScore: 0.9, Reason: voteReason, ReviewTimeSeconds: -1},
	}
	for i, req := range bad {
		_, err := module.Handler.SubmitValidationHandler(context.Background(), "validator-1", req.RequestID, "127.0.0.1", req)
		if !errors.Is(err, validationerrors.ErrInvalidVoteInput) {
			t.Errorf("case %d: expected invalid input, got %v", i, err)
		}
	}
	if module.Store.VoteCount("req-7") != 0 {
		t.Fatalf("invalid submissions must not persist votes")
	}
}

func TestValidationConcurrentVotesResolveOnce(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-8", "member-9", 3, 20) // quorum 2
	validators := []string{"validator-1", "validator-2", "validator-3", "validator-4"}
	for _, id := range validators {
		seedValidator(module, id, 0.9)
	}

	var wg sync.WaitGroup
	results := make([]httptransport.SubmitValidationResponse, len(validators))
	failures := make([]error, len(validators))
	for i, id := range validators {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			resp, err := module.Handler.SubmitValidationHandler(context.Background(), id, "req-8", "127.0.0.1", httptransport.SubmitValidationRequest{
				RequestID:       "req-8",
				Decision:        "approve",
				ConfidenceScore: 0.9,
				Reason:          voteReason,
			})
			results[i] = resp
			failures[i] = err
		}(i, id)
	}
	wg.Wait()

	resolved := 0
	accepted := 0
	for i := range validators {
		if failures[i] == nil {
			accepted++
			if results[i].Resolved {
				resolved++
			}
			continue
		}
		// Late arrivals may observe the already-resolved request.
		if !errors.Is(failures[i], validationerrors.ErrInvalidRequestStatus) {
			t.Fatalf("unexpected error: %v", failures[i])
		}
	}
	if accepted < 2 {
		t.Fatalf("quorum needs at least two accepted votes, got %d", accepted)
	}
	if resolved != 1 {
		t.Fatalf("exactly one caller must win the resolution, got %d", resolved)
	}
	if history := module.Store.StatusHistory("req-8"); len(history) != 1 {
		t.Fatalf("expected a single status transition, got %+v", history)
	}
	if funding := module.Store.FundingCalls(); len(funding) != 1 {
		t.Fatalf("expected a single funding initiation, got %v", funding)
	}
}

func TestPendingValidationQueueMasksRequester(t *testing.T) {
	module, _ := newValidationHarness()
	seedValidator(module, "validator-1", 0.96)
	seedOpenRequest(module, "req-9", "member-9", 8, 99) // quorum 5
	seedOpenRequest(module, "req-own", "validator-1", 3, 20)
	module.Store.SetRequesterProfile("member-9", entities.RequesterProfile{
		WalletAddress:      "0x1234567890abcdef",
		ReputationScore:    4.2,
		VerificationStatus: "verified",
		MemberSince:        time.Now().UTC().Add(-90 * 24 * time.Hour),
	})

	resp, err := module.Handler.PendingValidationsHandler(context.Background(), "validator-1", queries.PendingValidationsQuery{})
	if err != nil {
		t.Fatalf("pending validations failed: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("own request must be excluded, got %d items", len(resp.Items))
	}
	item := resp.Items[0]
	if item.RequestID != "req-9" || item.Required != 5 {
		t.Fatalf("unexpected queue item: %+v", item)
	}
	if item.Requester.WalletAddress != "0x1234...cdef" {
		t.Fatalf("wallet not masked: %q", item.Requester.WalletAddress)
	}
	want := reward.Compute(8, 99, 0.96)
	if item.Reward.Estimated != want.Total || item.Reward.Base != want.Base {
		t.Fatalf("reward quote = %+v, want %+v", item.Reward, want)
	}
}

func TestValidationHistoryFilterByDecision(t *testing.T) {
	module, _ := newValidationHarness()
	seedValidator(module, "validator-1", 0.85)
	seedOpenRequest(module, "req-10", "member-9", 8, 200) // quorum 5, stays open
	seedOpenRequest(module, "req-11", "member-8", 8, 200)

	submitVote(t, module, "validator-1", "req-10", "approve")
	submitVote(t, module, "validator-1", "req-11", "reject")

	resp, err := module.Handler.ValidationHistoryHandler(context.Background(), "validator-1", validationports.HistoryFilter{Decision: "reject"})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].RequestID != "req-11" || resp.Items[0].Decision != "reject" {
		t.Fatalf("unexpected history: %+v", resp.Items)
	}
	if resp.Pagination.Total != 1 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}
