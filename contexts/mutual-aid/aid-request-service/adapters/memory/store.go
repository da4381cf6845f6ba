package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

// Store is the in-memory repository used by tests and local runs. It also
// satisfies the Clock and IDGenerator ports.
type Store struct {
	mu       sync.RWMutex
	requests map[string]entities.AidRequest
	history  []entities.StatusChange
}

func NewStore() *Store {
	return &Store{
		requests: make(map[string]entities.AidRequest),
	}
}

// SetRequest seeds or replaces a request row directly, bypassing create
// validation. Test helper.
func (s *Store) SetRequest(request entities.AidRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[request.RequestID] = request
}

func (s *Store) CreateRequest(_ context.Context, request entities.AidRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.RequestID]; exists {
		return domainerrors.ErrRequestPersistence
	}
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (entities.AidRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[strings.TrimSpace(requestID)]
	if !ok {
		return entities.AidRequest{}, domainerrors.ErrRequestNotFound
	}
	return request, nil
}

func (s *Store) ListMyRequests(_ context.Context, filter ports.MyRequestsFilter) ([]entities.AidRequest, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.AidRequest, 0)
	for _, request := range s.requests {
		if !strings.EqualFold(request.RequesterID, filter.RequesterID) {
			continue
		}
		if filter.Status != "" && string(request.Status) != filter.Status {
			continue
		}
		matched = append(matched, request)
	}
	sortRequests(matched, filter.SortBy, filter.SortOrder)
	total := len(matched)

	start := (filter.Page - 1) * filter.Limit
	if start >= total {
		return []entities.AidRequest{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) ListStatusHistory(_ context.Context, requestID string) ([]entities.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	changes := make([]entities.StatusChange, 0)
	for _, change := range s.history {
		if change.RequestID == requestID {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

func (s *Store) HasOpenRequest(_ context.Context, requesterID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if strings.EqualFold(request.RequesterID, requesterID) && request.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CancelPending(
	_ context.Context,
	requestID string,
	requesterID string,
	cancelledAt time.Time,
	reason string,
) (entities.AidRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[strings.TrimSpace(requestID)]
	if !ok {
		return entities.AidRequest{}, domainerrors.ErrRequestNotFound
	}
	if !strings.EqualFold(request.RequesterID, requesterID) {
		return entities.AidRequest{}, domainerrors.ErrNotRequestOwner
	}
	if !request.Status.IsOpen() {
		return entities.AidRequest{}, domainerrors.ErrCannotCancel
	}

	fromStatus := request.Status
	cancelledAt = cancelledAt.UTC()
	request.Status = entities.RequestStatusCancelled
	request.CancelledAt = &cancelledAt
	request.UpdatedAt = cancelledAt
	s.requests[request.RequestID] = request
	s.history = append(s.history, entities.StatusChange{
		RequestID:  request.RequestID,
		FromStatus: fromStatus,
		ToStatus:   entities.RequestStatusCancelled,
		ChangedBy:  requesterID,
		Reason:     reason,
		ChangedAt:  cancelledAt,
	})
	return request, nil
}

func (s *Store) GetRequesterStats(_ context.Context, requesterID string, recentSince time.Time) (entities.RequesterStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats entities.RequesterStats
	for _, request := range s.requests {
		if !strings.EqualFold(request.RequesterID, requesterID) {
			continue
		}
		stats.TotalRequests++
		switch request.Status {
		case entities.RequestStatusPending, entities.RequestStatusUnderReview:
			stats.PendingRequests++
		case entities.RequestStatusApproved:
			stats.ApprovedRequests++
			stats.TotalApprovedAmount += request.Amount
		case entities.RequestStatusCompleted:
			stats.CompletedRequests++
			stats.TotalApprovedAmount += request.Amount
		case entities.RequestStatusRejected:
			stats.RejectedRequests++
		}
		if !request.CreatedAt.Before(recentSince) {
			stats.RecentRequests++
		}
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.ApprovedRequests+stats.CompletedRequests) / float64(stats.TotalRequests) * 100
	}
	stats.CanSubmitNew = stats.PendingRequests == 0
	return stats, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortRequests(requests []entities.AidRequest, sortBy string, sortOrder string) {
	asc := sortOrder == "asc"
	sort.SliceStable(requests, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "amount":
			less = requests[i].Amount < requests[j].Amount
		case "updated_at":
			less = requests[i].UpdatedAt.Before(requests[j].UpdatedAt)
		case "status":
			less = requests[i].Status < requests[j].Status
		default:
			less = requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
