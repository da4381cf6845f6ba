package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	requestports "almoner/contexts/mutual-aid/aid-request-service/ports"
	rewardapp "almoner/contexts/mutual-aid/reward-ledger/application"
	"almoner/contexts/mutual-aid/validation-engine/domain/consensus"
	validationerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	validationports "almoner/contexts/mutual-aid/validation-engine/ports"
)

// Cross-context collaborators live here so the contexts never import each
// other. The validation engine talks to the reward ledger through its
// RewardPolicy port, and the aid-request service reads vote tallies through
// its ValidationTallyReader port; both are satisfied at this composition
// root only.

type rewardPolicyAdapter struct {
	service rewardapp.RewardService
}

func (a rewardPolicyAdapter) Quote(ctx context.Context, severityLevel int, amount float64, accuracy float64) (validationports.RewardQuote, error) {
	breakdown, err := a.service.Quote(ctx, severityLevel, amount, accuracy)
	if err != nil {
		return validationports.RewardQuote{}, err
	}
	return validationports.RewardQuote{
		Base:       breakdown.Base,
		Multiplier: breakdown.AccuracyBonus,
		Total:      breakdown.Total,
	}, nil
}

func (a rewardPolicyAdapter) Settle(ctx context.Context, input validationports.RewardSettlementInput) (validationports.RewardSettlement, error) {
	settlement, err := a.service.SettleVote(ctx, rewardapp.SettleVoteInput{
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

var _ validationports.RewardPolicy = rewardPolicyAdapter{}

type validationTallyReader struct {
	votes    validationports.VoteStore
	requests validationports.AidRequestStore
}

// ValidationSummary returns a zero tally for requests the validation engine
// has never seen; request detail pages must not fail on it.
func (r validationTallyReader) ValidationSummary(ctx context.Context, requestID string) (requestports.ValidationSummary, error) {
	request, err := r.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, validationerrors.ErrRequestNotFound) {
			return requestports.ValidationSummary{}, nil
		}
		return requestports.ValidationSummary{}, err
	}

	votes, err := r.votes.ListVotesByRequest(ctx, requestID)
	if err != nil {
		return requestports.ValidationSummary{}, err
	}

	outcome := consensus.Evaluate(votes, request.SeverityLevel, request.Amount)
	summary := requestports.ValidationSummary{
		Total:    outcome.TotalVotes,
		Approved: outcome.ApproveCount,
		Rejected: outcome.RejectCount,
		Required: outcome.Required,
		Complete: outcome.Decided,
	}
	if len(votes) > 0 {
		var confidence float64
		for _, vote := range votes {
			confidence += vote.ConfidenceScore
		}
		summary.AverageConfidence = confidence / float64(len(votes))
	}
	return summary, nil
}

var _ requestports.ValidationTallyReader = validationTallyReader{}

// fundDistributionStub stands in for the treasury service until its
// disbursement API is available.
type fundDistributionStub struct {
	logger *slog.Logger
}

func (f fundDistributionStub) Initiate(_ context.Context, requestID string) error {
	if f.logger != nil {
		f.logger.Info("fund distribution initiated",
			"event", "fund_distribution_initiated",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"request_id", requestID,
		)
	}
	return nil
}

type outcomeNotifierStub struct {
	logger *slog.Logger
}

func (n outcomeNotifierStub) Notify(_ context.Context, requestID string, outcome string) error {
	if n.logger != nil {
		n.logger.Info("requester notified of outcome",
			"event", "requester_notified",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"request_id", requestID,
			"outcome", outcome,
		)
	}
	return nil
}

var (
	_ validationports.FundingInitiator = fundDistributionStub{}
	_ validationports.Notifier         = outcomeNotifierStub{}
)
