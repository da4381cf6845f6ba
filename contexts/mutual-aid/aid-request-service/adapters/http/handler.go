package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"almoner/contexts/mutual-aid/aid-request-service/application/commands"
	"almoner/contexts/mutual-aid/aid-request-service/application/queries"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
	httptransport "almoner/contexts/mutual-aid/aid-request-service/transport/http"
)

type Handler struct {
	Create  commands.CreateRequestUseCase
	Cancel  commands.CancelRequestUseCase
	Queries queries.RequestQueries
	Logger  *slog.Logger
}

func (h Handler) CreateRequestHandler(
	ctx context.Context,
	requesterID string,
	req httptransport.CreateRequestRequest,
) (httptransport.RequestResponse, error) {
	created, err := h.Create.Execute(ctx, commands.CreateRequestCommand{
		RequesterID:   requesterID,
		Amount:        req.Amount,
		SeverityLevel: req.SeverityLevel,
		Category:      req.Category,
		Urgency:       req.Urgency,
		Reason:        req.Reason,
		PublicMessage: req.PublicMessage,
	})
	if err != nil {
		return httptransport.RequestResponse{}, err
	}
	return mapRequest(queries.RequestDetail{Request: created, IsOwner: true, CanCancel: true}, true), nil
}

func (h Handler) GetRequestHandler(
	ctx context.Context,
	requestID string,
	callerID string,
) (httptransport.RequestResponse, error) {
	detail, err := h.Queries.GetRequest(ctx, requestID, callerID)
	if err != nil {
		return httptransport.RequestResponse{}, err
	}
	return mapRequest(detail, detail.IsOwner), nil
}

func (h Handler) MyRequestsHandler(
	ctx context.Context,
	requesterID string,
	filter ports.MyRequestsFilter,
) (httptransport.MyRequestsResponse, error) {
	filter.RequesterID = requesterID
	result, err := h.Queries.ListMyRequests(ctx, filter)
	if err != nil {
		return httptransport.MyRequestsResponse{}, err
	}

	items := make([]httptransport.RequestResponse, 0, len(result.Items))
	for _, detail := range result.Items {
		items = append(items, mapRequest(detail, true))
	}
	return httptransport.MyRequestsResponse{
		Items: items,
		Pagination: httptransport.Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
			HasPrev:    result.HasPrev,
		},
		Stats: httptransport.RequesterStats{
			TotalRequests:       result.Stats.TotalRequests,
			PendingRequests:     result.Stats.PendingRequests,
			ApprovedRequests:    result.Stats.ApprovedRequests,
			CompletedRequests:   result.Stats.CompletedRequests,
			RejectedRequests:    result.Stats.RejectedRequests,
			RecentRequests:      result.Stats.RecentRequests,
			TotalApprovedAmount: result.Stats.TotalApprovedAmount,
			SuccessRate:         result.Stats.SuccessRate,
			CanSubmitNew:        result.Stats.CanSubmitNew,
		},
	}, nil
}

func (h Handler) CancelRequestHandler(
	ctx context.Context,
	requestID string,
	requesterID string,
) (httptransport.CancelResponse, error) {
	cancelled, err := h.Cancel.Execute(ctx, commands.CancelRequestCommand{
		RequestID:   requestID,
		RequesterID: requesterID,
	})
	if err != nil {
		return httptransport.CancelResponse{}, err
	}
	response := httptransport.CancelResponse{
		RequestID: cancelled.RequestID,
		Status:    string(cancelled.Status),
	}
	if cancelled.CancelledAt != nil {
		response.CancelledAt = cancelled.CancelledAt.UTC().Format(time.RFC3339)
	}
	return response, nil
}

// mapRequest keeps the plea text owner-only; other members see the public
// message and aggregates.
func mapRequest(detail queries.RequestDetail, includePrivate bool) httptransport.RequestResponse {
	request := detail.Request
	response := httptransport.RequestResponse{
		RequestID:     request.RequestID,
		Amount:        request.Amount,
		SeverityLevel: request.SeverityLevel,
		Category:      request.Category,
		Urgency:       string(request.Urgency),
		PublicMessage: request.PublicMessage,
		Status:        string(request.Status),
		CreatedAt:     request.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     request.UpdatedAt.UTC().Format(time.RFC3339),
		Summary: httptransport.ValidationSummary{
			Total:             detail.Summary.Total,
			Approved:          detail.Summary.Approved,
			Rejected:          detail.Summary.Rejected,
			AverageConfidence: detail.Summary.AverageConfidence,
			Required:          detail.Summary.Required,
			Complete:          detail.Summary.Complete,
		},
		IsOwner:   detail.IsOwner,
		CanCancel: detail.CanCancel,
	}
	if includePrivate {
		response.Reason = request.Reason
	}
	if request.ExpiresAt != nil {
		response.ExpiresAt = request.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if request.ResolvedAt != nil {
		response.ResolvedAt = request.ResolvedAt.UTC().Format(time.RFC3339)
	}
	if request.CancelledAt != nil {
		response.CancelledAt = request.CancelledAt.UTC().Format(time.RFC3339)
	}
	for _, change := range detail.StatusHistory {
		response.StatusHistory = append(response.StatusHistory, httptransport.StatusChange{
			FromStatus: string(change.FromStatus),
			ToStatus:   string(change.ToStatus),
			ChangedBy:  change.ChangedBy,
			Reason:     change.Reason,
			ChangedAt:  change.ChangedAt.UTC().Format(time.RFC3339),
		})
	}
	return response
}
