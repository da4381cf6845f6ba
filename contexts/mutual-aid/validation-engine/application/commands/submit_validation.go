package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	application "almoner/contexts/mutual-aid/validation-engine/application"
	"almoner/contexts/mutual-aid/validation-engine/domain/consensus"
	"almoner/contexts/mutual-aid/validation-engine/domain/eligibility"
	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

const (
	minReasonChars = 20
	maxReasonChars = 500
	minConfidence  = 0.1
	maxConfidence  = 1.0
)

// SubmitValidationCommand is the write-model input for one validator vote.
type SubmitValidationCommand struct {
	ValidatorID       string
	RequestID         string
	Decision          string
	ConfidenceScore   float64
	Reason            string
	ReviewTimeSeconds int
	IPAddress         string
}

// SubmitValidationResult carries the accepted vote, the consensus outcome
// derived from the persisted vote set, and the reward settlement when
// crediting succeeded synchronously. Resolved marks whether this call
// performed the status transition (at most one concurrent caller does).
type SubmitValidationResult struct {
	Vote     entities.ValidationVote
	Outcome  consensus.Outcome
	Resolved bool
	Reward   *ports.RewardSettlement
}

// ValidationUseCase orchestrates vote ingestion: eligibility gate, the
// precondition chain, atomic insert, quorum evaluation, the at-most-once
// resolution, and decoupled reward settlement.
type ValidationUseCase struct {
	Votes       ports.VoteStore
	Requests    ports.AidRequestStore
	Profiles    ports.ValidatorProfileStore
	Snapshots   ports.SnapshotCache
	Rewards     ports.RewardPolicy
	Dispatcher  ResolutionDispatcher
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	SnapshotTTL time.Duration
	Logger      *slog.Logger
}

func (uc ValidationUseCase) SubmitValidation(ctx context.Context, cmd SubmitValidationCommand) (SubmitValidationResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	validatorID := strings.TrimSpace(cmd.ValidatorID)
	requestID := strings.TrimSpace(cmd.RequestID)
	if validatorID == "" {
		return SubmitValidationResult{}, domainerrors.ErrAuthenticationRequired
	}
	if err := validateVoteInput(requestID, cmd); err != nil {
		return SubmitValidationResult{}, err
	}

	snapshot, err := uc.resolveSnapshot(ctx, validatorID)
	if err != nil {
		return SubmitValidationResult{}, err
	}
	if report := eligibility.Check(snapshot); !report.Eligible {
		logger.Warn("validation vote blocked by eligibility gate",
			"event", "validation_vote_not_qualified",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"validator_id", validatorID,
			"unmet", strings.Join(report.UnmetRequirements, ","),
		)
		return SubmitValidationResult{}, domainerrors.QualificationError{Report: report}
	}

	request, err := uc.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return SubmitValidationResult{}, err
	}
	if !statusAcceptsVotes(request.Status) {
		return SubmitValidationResult{}, domainerrors.StatusError{CurrentStatus: request.Status}
	}
	if strings.EqualFold(strings.TrimSpace(request.RequesterID), validatorID) {
		return SubmitValidationResult{}, domainerrors.ErrCannotValidateOwnRequest
	}

	now := uc.now()
	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitValidationResult{}, err
	}
	vote := entities.ValidationVote{
		VoteID:            voteID,
		RequestID:         requestID,
		ValidatorID:       validatorID,
		Decision:          entities.VoteDecision(cmd.Decision),
		ConfidenceScore:   cmd.ConfidenceScore,
		Reason:            strings.TrimSpace(cmd.Reason),
		ReviewTimeSeconds: cmd.ReviewTimeSeconds,
		IPAddress:         strings.TrimSpace(cmd.IPAddress),
		CreatedAt:         now,
	}

	recordedEvent, err := uc.voteRecordedMessage(ctx, vote, now)
	if err != nil {
		return SubmitValidationResult{}, err
	}
	if err := uc.Votes.InsertVote(ctx, vote, recordedEvent); err != nil {
		return SubmitValidationResult{}, err
	}
	logger.Info("validation vote accepted",
		"event", "validation_vote_accepted",
		"module", "mutual-aid/validation-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"request_id", requestID,
		"validator_id", validatorID,
		"decision", string(vote.Decision),
	)

	// Consensus always runs against the freshly persisted vote set, never a
	// cached tally, so concurrent writers converge on the same outcome.
	votes, err := uc.Votes.ListVotesByRequest(ctx, requestID)
	if err != nil {
		return SubmitValidationResult{}, err
	}
	outcome := consensus.Evaluate(votes, request.SeverityLevel, request.Amount)
	outcome.RequestID = requestID

	result := SubmitValidationResult{Vote: vote, Outcome: outcome}
	if outcome.Decided {
		result.Resolved = uc.resolve(ctx, outcome, now)
	}

	result.Reward = uc.settleReward(ctx, vote, request, snapshot)
	return result, nil
}

// resolve performs the at-most-once transition and fires downstream side
// effects when this caller won the compare-and-set. Losing the race is not an
// error: another concurrent vote already resolved the request.
func (uc ValidationUseCase) resolve(ctx context.Context, outcome consensus.Outcome, now time.Time) bool {
	logger := application.ResolveLogger(uc.Logger)
	resolution := ports.Resolution{
		RequestID:    outcome.RequestID,
		Approved:     outcome.Approved,
		Reason:       resolutionReason(outcome),
		ApproveCount: outcome.ApproveCount,
		RejectCount:  outcome.RejectCount,
		Required:     outcome.Required,
		ResolvedAt:   now,
	}
	resolvedEvent, err := uc.requestResolvedMessage(ctx, resolution, now)
	if err != nil {
		logger.Error("resolution event build failed",
			"event", "validation_resolution_event_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"request_id", outcome.RequestID,
			"error", err.Error(),
		)
		return false
	}
	applied, err := uc.Requests.ResolvePending(ctx, resolution, resolvedEvent)
	if err != nil {
		logger.Error("request resolution failed",
			"event", "validation_resolution_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"request_id", outcome.RequestID,
			"error", err.Error(),
		)
		return false
	}
	if !applied {
		logger.Info("request already resolved by concurrent vote",
			"event", "validation_resolution_noop",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"request_id", outcome.RequestID,
		)
		return false
	}
	logger.Info("request resolved by consensus",
		"event", "validation_request_resolved",
		"module", "mutual-aid/validation-engine",
		"layer", "application",
		"request_id", outcome.RequestID,
		"approved", outcome.Approved,
		"approve_count", outcome.ApproveCount,
		"reject_count", outcome.RejectCount,
		"required", outcome.Required,
	)
	uc.Dispatcher.Dispatch(ctx, resolution)
	return true
}

// settleReward credits the validator for this vote. Crediting is idempotent
// on voteID and independent of resolution; a failure here never rolls back
// the accepted vote and is re-driven from the outbox by the worker.
func (uc ValidationUseCase) settleReward(
	ctx context.Context,
	vote entities.ValidationVote,
	request entities.AidRequestView,
	snapshot entities.ValidatorSnapshot,
) *ports.RewardSettlement {
	if uc.Rewards == nil {
		return nil
	}
	settlement, err := uc.Rewards.Settle(ctx, ports.RewardSettlementInput{
		VoteID:        vote.VoteID,
		RequestID:     vote.RequestID,
		ValidatorID:   vote.ValidatorID,
		Decision:      string(vote.Decision),
		SeverityLevel: request.SeverityLevel,
		Amount:        request.Amount,
		Accuracy:      snapshot.ValidationAccuracy,
	})
	if err != nil {
		application.ResolveLogger(uc.Logger).Error("reward settlement failed; vote remains accepted",
			"event", "validation_reward_settlement_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"vote_id", vote.VoteID,
			"validator_id", vote.ValidatorID,
			"error", err.Error(),
		)
		return nil
	}
	return &settlement
}

func (uc ValidationUseCase) resolveSnapshot(ctx context.Context, validatorID string) (entities.ValidatorSnapshot, error) {
	if uc.Snapshots != nil {
		if snapshot, found, err := uc.Snapshots.GetSnapshot(ctx, validatorID); err == nil && found {
			return snapshot, nil
		}
	}
	snapshot, err := uc.Profiles.GetSnapshot(ctx, validatorID)
	if err != nil {
		return entities.ValidatorSnapshot{}, err
	}
	if uc.Snapshots != nil {
		if err := uc.Snapshots.PutSnapshot(ctx, snapshot, uc.snapshotTTL()); err != nil {
			application.ResolveLogger(uc.Logger).Warn("snapshot cache write failed",
				"event", "validation_snapshot_cache_write_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "application",
				"validator_id", validatorID,
				"error", err.Error(),
			)
		}
	}
	return snapshot, nil
}

func (uc ValidationUseCase) snapshotTTL() time.Duration {
	if uc.SnapshotTTL <= 0 {
		return 2 * time.Minute
	}
	return uc.SnapshotTTL
}

func (uc ValidationUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc ValidationUseCase) voteRecordedMessage(
	ctx context.Context,
	vote entities.ValidationVote,
	occurredAt time.Time,
) (ports.OutboxMessage, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	envelope := newValidationEnvelope(eventID, EventValidationRecorded, "validation_vote", vote.VoteID, occurredAt, map[string]any{
		"vote_id":      vote.VoteID,
		"request_id":   vote.RequestID,
		"validator_id": vote.ValidatorID,
		"decision":     string(vote.Decision),
	})
	return outboxMessageFor(envelope, vote.RequestID)
}

func (uc ValidationUseCase) requestResolvedMessage(
	ctx context.Context,
	resolution ports.Resolution,
	occurredAt time.Time,
) (ports.OutboxMessage, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	outcome := "rejected"
	if resolution.Approved {
		outcome = "approved"
	}
	envelope := newValidationEnvelope(eventID, EventRequestResolved, "aid_request", resolution.RequestID, occurredAt, map[string]any{
		"request_id":    resolution.RequestID,
		"outcome":       outcome,
		"approve_count": resolution.ApproveCount,
		"reject_count":  resolution.RejectCount,
		"required":      resolution.Required,
	})
	return outboxMessageFor(envelope, resolution.RequestID)
}

func validateVoteInput(requestID string, cmd SubmitValidationCommand) error {
	if requestID == "" {
		return domainerrors.ErrInvalidVoteInput
	}
	decision := entities.VoteDecision(cmd.Decision)
	if decision != entities.VoteDecisionApprove && decision != entities.VoteDecisionReject {
		return domainerrors.ErrInvalidVoteInput
	}
	if cmd.ConfidenceScore < minConfidence || cmd.ConfidenceScore > maxConfidence {
		return domainerrors.ErrInvalidVoteInput
	}
	reasonLen := utf8.RuneCountInString(strings.TrimSpace(cmd.Reason))
	if reasonLen < minReasonChars || reasonLen > maxReasonChars {
		return domainerrors.ErrInvalidVoteInput
	}
	if cmd.ReviewTimeSeconds < 0 {
		return domainerrors.ErrInvalidVoteInput
	}
	return nil
}

func statusAcceptsVotes(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "under_review":
		return true
	default:
		return false
	}
}

func resolutionReason(outcome consensus.Outcome) string {
	if outcome.Approved {
		return fmt.Sprintf("consensus approved: %d/%d approvals", outcome.ApproveCount, outcome.Required)
	}
	return fmt.Sprintf("consensus rejected: %d rejections of %d votes, quorum %d unreachable",
		outcome.RejectCount, outcome.TotalVotes, outcome.Required)
}
