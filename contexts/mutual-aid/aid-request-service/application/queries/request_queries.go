package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "almoner/contexts/mutual-aid/aid-request-service/application"
	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	recentWindow    = 30 * 24 * time.Hour
)

// RequestDetail is one request with everything its owner (or a curious
// member) is allowed to see.
type RequestDetail struct {
	Request       entities.AidRequest
	StatusHistory []entities.StatusChange
	Summary       ports.ValidationSummary
	IsOwner       bool
	CanCancel     bool
}

type MyRequestsResult struct {
	Items      []RequestDetail
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
	Stats      entities.RequesterStats
}

type RequestQueries struct {
	Repository ports.Repository
	Tallies    ports.ValidationTallyReader
	Clock      ports.Clock
	Logger     *slog.Logger
}

// GetRequest returns the request detail. callerID may be empty; ownership
// derived fields are simply false then.
func (q RequestQueries) GetRequest(ctx context.Context, requestID string, callerID string) (RequestDetail, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return RequestDetail{}, domainerrors.ErrInvalidRequestInput
	}
	request, err := q.Repository.GetRequest(ctx, requestID)
	if err != nil {
		return RequestDetail{}, err
	}

	detail := RequestDetail{Request: request}
	callerID = strings.TrimSpace(callerID)
	detail.IsOwner = callerID != "" && strings.EqualFold(request.RequesterID, callerID)
	detail.CanCancel = detail.IsOwner && request.Status.IsOpen()

	history, err := q.Repository.ListStatusHistory(ctx, requestID)
	if err != nil {
		return RequestDetail{}, err
	}
	detail.StatusHistory = history

	detail.Summary = q.summary(ctx, requestID)
	return detail, nil
}

func (q RequestQueries) ListMyRequests(ctx context.Context, filter ports.MyRequestsFilter) (MyRequestsResult, error) {
	requesterID := strings.TrimSpace(filter.RequesterID)
	if requesterID == "" {
		return MyRequestsResult{}, domainerrors.ErrAuthenticationRequired
	}
	normalized, err := normalizeMyRequestsFilter(filter)
	if err != nil {
		return MyRequestsResult{}, err
	}

	requests, total, err := q.Repository.ListMyRequests(ctx, normalized)
	if err != nil {
		return MyRequestsResult{}, err
	}

	items := make([]RequestDetail, 0, len(requests))
	for _, request := range requests {
		items = append(items, RequestDetail{
			Request:   request,
			IsOwner:   true,
			CanCancel: request.Status.IsOpen(),
			Summary:   q.summary(ctx, request.RequestID),
		})
	}

	stats, err := q.Repository.GetRequesterStats(ctx, requesterID, q.now().Add(-recentWindow))
	if err != nil {
		application.ResolveLogger(q.Logger).Warn("requester stats lookup failed",
			"event", "aid_request_stats_lookup_failed",
			"module", "mutual-aid/aid-request-service",
			"layer", "application",
			"requester_id", requesterID,
			"error", err.Error(),
		)
		stats = entities.RequesterStats{}
	}

	totalPages := (total + normalized.Limit - 1) / normalized.Limit
	return MyRequestsResult{
		Items:      items,
		Page:       normalized.Page,
		Limit:      normalized.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    normalized.Page < totalPages,
		HasPrev:    normalized.Page > 1,
		Stats:      stats,
	}, nil
}

func (q RequestQueries) summary(ctx context.Context, requestID string) ports.ValidationSummary {
	if q.Tallies == nil {
		return ports.ValidationSummary{}
	}
	summary, err := q.Tallies.ValidationSummary(ctx, requestID)
	if err != nil {
		application.ResolveLogger(q.Logger).Warn("validation summary lookup failed",
			"event", "aid_request_summary_lookup_failed",
			"module", "mutual-aid/aid-request-service",
			"layer", "application",
			"request_id", requestID,
			"error", err.Error(),
		)
		return ports.ValidationSummary{}
	}
	return summary
}

func (q RequestQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeMyRequestsFilter(filter ports.MyRequestsFilter) (ports.MyRequestsFilter, error) {
	filter.RequesterID = strings.TrimSpace(filter.RequesterID)
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status != "" {
		if _, known := entities.ParseStatus(filter.Status); !known {
			return ports.MyRequestsFilter{}, domainerrors.ErrInvalidRequestInput
		}
	}
	switch filter.SortBy {
	case "":
		filter.SortBy = "created_at"
	case "created_at", "updated_at", "amount", "status":
	default:
		return ports.MyRequestsFilter{}, domainerrors.ErrInvalidRequestInput
	}
	switch strings.ToLower(filter.SortOrder) {
	case "":
		filter.SortOrder = "desc"
	case "asc", "desc":
		filter.SortOrder = strings.ToLower(filter.SortOrder)
	default:
		return ports.MyRequestsFilter{}, domainerrors.ErrInvalidRequestInput
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return filter, nil
}
