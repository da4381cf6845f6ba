package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/application/commands"
	"almoner/contexts/mutual-aid/validation-engine/application/queries"
	"almoner/contexts/mutual-aid/validation-engine/ports"
	httptransport "almoner/contexts/mutual-aid/validation-engine/transport/http"
)

type Handler struct {
	Validations commands.ValidationUseCase
	Pending     queries.PendingValidationsUseCase
	History     queries.ValidationHistoryUseCase
	Logger      *slog.Logger
}

func (h Handler) SubmitValidationHandler(
	ctx context.Context,
	validatorID string,
	requestID string,
	clientIP string,
	req httptransport.SubmitValidationRequest,
) (httptransport.SubmitValidationResponse, error) {
	result, err := h.Validations.SubmitValidation(ctx, commands.SubmitValidationCommand{
		ValidatorID:       validatorID,
		RequestID:         requestID,
		Decision:          req.Decision,
		ConfidenceScore:   req.ConfidenceScore,
		Reason:            req.Reason,
		ReviewTimeSeconds: req.ReviewTimeSeconds,
		IPAddress:         clientIP,
	})
	if err != nil {
		return httptransport.SubmitValidationResponse{}, err
	}

	state := httptransport.ConsensusState{
		Approvals:  result.Outcome.ApproveCount,
		Rejections: result.Outcome.RejectCount,
		TotalVotes: result.Outcome.TotalVotes,
		Required:   result.Outcome.Required,
		Decided:    result.Outcome.Decided,
	}
	if result.Outcome.Decided {
		state.Outcome = "rejected"
		if result.Outcome.Approved {
			state.Outcome = "approved"
		}
	}
	return httptransport.SubmitValidationResponse{
		VoteID:         result.Vote.VoteID,
		RequestID:      result.Vote.RequestID,
		Decision:       string(result.Vote.Decision),
		ConsensusState: state,
		Resolved:       result.Resolved,
		Reward:         mapReward(result.Reward),
		CreatedAt:      result.Vote.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) PendingValidationsHandler(
	ctx context.Context,
	validatorID string,
	query queries.PendingValidationsQuery,
) (httptransport.PendingValidationsResponse, error) {
	query.ValidatorID = validatorID
	result, err := h.Pending.PendingValidations(ctx, query)
	if err != nil {
		return httptransport.PendingValidationsResponse{}, err
	}

	items := make([]httptransport.PendingValidationItem, 0, len(result.Items))
	for _, item := range result.Items {
		row := httptransport.PendingValidationItem{
			RequestID:     item.Request.RequestID,
			Amount:        item.Request.Amount,
			SeverityLevel: item.Request.SeverityLevel,
			Category:      item.Request.Category,
			Urgency:       item.Request.Urgency,
			CreatedAt:     item.Request.CreatedAt.UTC().Format(time.RFC3339),
			Requester: httptransport.RequesterSummary{
				WalletAddress:      item.Requester.WalletAddress,
				ReputationScore:    item.Requester.ReputationScore,
				TotalContributions: item.Requester.TotalContributions,
				VerificationStatus: item.Requester.VerificationStatus,
				MemberSince:        item.Requester.MemberSince.UTC().Format(time.RFC3339),
			},
			Approvals:  item.Approvals,
			Rejections: item.Rejections,
			TotalVotes: item.TotalVotes,
			Required:   item.Required,
			Reward: httptransport.RewardQuote{
				Base:       item.Reward.Base,
				Multiplier: item.Reward.Multiplier,
				Estimated:  item.Reward.Total,
			},
		}
		if item.Request.ExpiresAt != nil {
			row.ExpiresAt = item.Request.ExpiresAt.UTC().Format(time.RFC3339)
		}
		items = append(items, row)
	}
	return httptransport.PendingValidationsResponse{
		Items: items,
		Pagination: httptransport.Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
			HasPrev:    result.HasPrev,
		},
		Stats: httptransport.ValidatorStats{
			TotalValidations:    result.Stats.TotalValidations,
			RecentValidations:   result.Stats.RecentValidations,
			ApprovedValidations: result.Stats.ApprovedValidations,
			ApprovalRate:        result.Stats.ApprovalRate,
		},
	}, nil
}

func (h Handler) ValidationHistoryHandler(
	ctx context.Context,
	validatorID string,
	filter ports.HistoryFilter,
) (httptransport.ValidationHistoryResponse, error) {
	result, err := h.History.ValidationHistory(ctx, queries.ValidationHistoryQuery{
		ValidatorID: validatorID,
		Filter:      filter,
	})
	if err != nil {
		return httptransport.ValidationHistoryResponse{}, err
	}

	items := make([]httptransport.HistoryItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, httptransport.HistoryItem{
			VoteID:          item.Vote.VoteID,
			RequestID:       item.Vote.RequestID,
			Decision:        string(item.Vote.Decision),
			ConfidenceScore: item.Vote.ConfidenceScore,
			Reason:          item.Vote.Reason,
			CreatedAt:       item.Vote.CreatedAt.UTC().Format(time.RFC3339),
			Amount:          item.Request.Amount,
			Category:        item.Request.Category,
			RequestStatus:   item.Request.Status,
		})
	}
	return httptransport.ValidationHistoryResponse{
		Items: items,
		Pagination: httptransport.Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
			HasPrev:    result.HasPrev,
		},
	}, nil
}

func mapReward(settlement *ports.RewardSettlement) *httptransport.RewardSettled {
	if settlement == nil {
		return nil
	}
	return &httptransport.RewardSettled{
		EntryID:       settlement.EntryID,
		Amount:        settlement.Amount,
		Base:          settlement.Base,
		SeverityMult:  settlement.SeverityMult,
		AmountMult:    settlement.AmountMult,
		AccuracyBonus: settlement.AccuracyBonus,
		Credited:      settlement.Credited,
		Replayed:      settlement.Replayed,
	}
}
