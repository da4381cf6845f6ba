package ports

import (
	"context"
	"time"

	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
)

// MyRequestsFilter pages through a requester's own requests.
type MyRequestsFilter struct {
	RequesterID string
	Status      string
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
}

// ValidationSummary is the live tally attached to a request detail. The
// validation engine owns the vote rows; this service only reads aggregates
// through the reader port wired at the composition root.
type ValidationSummary struct {
	Total             int
	Approved          int
	Rejected          int
	AverageConfidence float64
	Required          int
	Complete          bool
}

// ValidationTallyReader exposes the vote aggregate for one request.
type ValidationTallyReader interface {
	ValidationSummary(ctx context.Context, requestID string) (ValidationSummary, error)
}

// Repository persists aid requests and their status history. CancelPending
// applies the requester-initiated cancel as a compare-and-set guarded on
// pending/under_review, appending the history row in the same transaction.
type Repository interface {
	CreateRequest(ctx context.Context, request entities.AidRequest) error
	GetRequest(ctx context.Context, requestID string) (entities.AidRequest, error)
	ListMyRequests(ctx context.Context, filter MyRequestsFilter) ([]entities.AidRequest, int, error)
	ListStatusHistory(ctx context.Context, requestID string) ([]entities.StatusChange, error)
	HasOpenRequest(ctx context.Context, requesterID string) (bool, error)
	CancelPending(ctx context.Context, requestID string, requesterID string, cancelledAt time.Time, reason string) (entities.AidRequest, error)
	GetRequesterStats(ctx context.Context, requesterID string, recentSince time.Time) (entities.RequesterStats, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
