package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	"almoner/contexts/mutual-aid/validation-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// StatusChange is a recorded status-history row for test inspection.
type StatusChange struct {
	RequestID  string
	FromStatus string
	ToStatus   string
	ChangedBy  string
	Reason     string
	ChangedAt  time.Time
}

// Store is the in-memory implementation of every validation-engine port.
// All mutations hold the write lock, so the compare-and-insert on votes and
// the compare-and-set on request status are atomic with respect to
// concurrent submissions.
type Store struct {
	mu sync.RWMutex

	requests   map[string]entities.AidRequestView
	requesters map[string]entities.RequesterProfile
	snapshots  map[string]entities.ValidatorSnapshot
	votes      map[string]entities.ValidationVote
	voteIndex  map[string]string // requestID|validatorID -> voteID
	history    []StatusChange
	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord

	fundingCalls  []string
	notifications []string

	FailFunding bool
	FailNotify  bool
}

func NewStore() *Store {
	return &Store{
		requests:   make(map[string]entities.AidRequestView),
		requesters: make(map[string]entities.RequesterProfile),
		snapshots:  make(map[string]entities.ValidatorSnapshot),
		votes:      make(map[string]entities.ValidationVote),
		voteIndex:  make(map[string]string),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) SetRequest(request entities.AidRequestView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[strings.TrimSpace(request.RequestID)] = request
}

func (s *Store) SetRequesterProfile(requesterID string, profile entities.RequesterProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requesters[strings.TrimSpace(requesterID)] = profile
}

func (s *Store) SetValidatorSnapshot(snapshot entities.ValidatorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[strings.TrimSpace(snapshot.ValidatorID)] = snapshot
}

func (s *Store) InsertVote(_ context.Context, vote entities.ValidationVote, event ports.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey(vote.RequestID, vote.ValidatorID)
	if _, exists := s.voteIndex[key]; exists {
		return domainerrors.ErrAlreadyValidated
	}
	s.votes[vote.VoteID] = vote
	s.voteIndex[key] = vote.VoteID
	s.outbox[event.OutboxID] = outboxRecord{message: event}
	return nil
}

func (s *Store) GetVote(_ context.Context, voteID string) (entities.ValidationVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[strings.TrimSpace(voteID)]
	if !ok {
		return entities.ValidationVote{}, domainerrors.ErrVoteNotFound
	}
	return vote, nil
}

func (s *Store) ListVotesByRequest(_ context.Context, requestID string) ([]entities.ValidationVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var votes []entities.ValidationVote
	for _, vote := range s.votes {
		if vote.RequestID == strings.TrimSpace(requestID) {
			votes = append(votes, vote)
		}
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].CreatedAt.Before(votes[j].CreatedAt) })
	return votes, nil
}

func (s *Store) ListValidatorHistory(_ context.Context, validatorID string, filter ports.HistoryFilter) ([]ports.HistoryItem, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []ports.HistoryItem
	for _, vote := range s.votes {
		if vote.ValidatorID != strings.TrimSpace(validatorID) {
			continue
		}
		if filter.Decision != "" && string(vote.Decision) != filter.Decision {
			continue
		}
		if filter.DateFrom != nil && vote.CreatedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && vote.CreatedAt.After(*filter.DateTo) {
			continue
		}
		items = append(items, ports.HistoryItem{Vote: vote, Request: s.requests[vote.RequestID]})
	}

	ascending := filter.SortOrder == "asc"
	sort.Slice(items, func(i, j int) bool {
		var less bool
		if filter.SortBy == "confidence_score" {
			less = items[i].Vote.ConfidenceScore < items[j].Vote.ConfidenceScore
		} else {
			less = items[i].Vote.CreatedAt.Before(items[j].Vote.CreatedAt)
		}
		if ascending {
			return less
		}
		return !less
	})

	total := len(items)
	items = paginate(items, filter.Page, filter.Limit)
	return items, total, nil
}

func (s *Store) GetValidatorStats(_ context.Context, validatorID string, recentSince time.Time) (entities.ValidatorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats entities.ValidatorStats
	for _, vote := range s.votes {
		if vote.ValidatorID != strings.TrimSpace(validatorID) {
			continue
		}
		stats.TotalValidations++
		if !vote.CreatedAt.Before(recentSince) {
			stats.RecentValidations++
		}
		if vote.Decision == entities.VoteDecisionApprove {
			stats.ApprovedValidations++
		}
	}
	if stats.TotalValidations > 0 {
		stats.ApprovalRate = float64(stats.ApprovedValidations) / float64(stats.TotalValidations) * 100
	}
	return stats, nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (entities.AidRequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[strings.TrimSpace(requestID)]
	if !ok {
		return entities.AidRequestView{}, domainerrors.ErrRequestNotFound
	}
	return request, nil
}

func (s *Store) ListPendingRequests(_ context.Context, filter ports.PendingFilter) ([]ports.PendingRequest, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projections []ports.PendingRequest
	for _, request := range s.requests {
		if request.Status != "pending" {
			continue
		}
		if strings.EqualFold(request.RequesterID, filter.ForValidatorID) {
			continue
		}
		if _, voted := s.voteIndex[identityKey(request.RequestID, filter.ForValidatorID)]; voted {
			continue
		}
		if filter.Category != "" && request.Category != filter.Category {
			continue
		}
		if filter.Urgency != "" && request.Urgency != filter.Urgency {
			continue
		}
		if filter.SeverityLevel > 0 && request.SeverityLevel != filter.SeverityLevel {
			continue
		}
		projection := ports.PendingRequest{
			Request:   request,
			Requester: s.requesters[request.RequesterID],
		}
		for _, vote := range s.votes {
			if vote.RequestID != request.RequestID {
				continue
			}
			projection.TotalVotes++
			if vote.Decision == entities.VoteDecisionApprove {
				projection.Approvals++
			} else {
				projection.Rejections++
			}
		}
		projections = append(projections, projection)
	}

	sortPending(projections, filter.SortBy, filter.SortOrder)
	total := len(projections)
	projections = paginate(projections, filter.Page, filter.Limit)
	return projections, total, nil
}

func (s *Store) ResolvePending(_ context.Context, resolution ports.Resolution, event ports.OutboxMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[strings.TrimSpace(resolution.RequestID)]
	if !ok {
		return false, domainerrors.ErrRequestNotFound
	}
	if request.Status != "pending" && request.Status != "under_review" {
		return false, nil
	}
	fromStatus := request.Status
	if resolution.Approved {
		request.Status = "approved"
	} else {
		request.Status = "rejected"
	}
	s.requests[request.RequestID] = request
	s.history = append(s.history, StatusChange{
		RequestID:  request.RequestID,
		FromStatus: fromStatus,
		ToStatus:   request.Status,
		ChangedBy:  "system",
		Reason:     resolution.Reason,
		ChangedAt:  resolution.ResolvedAt,
	})
	s.outbox[event.OutboxID] = outboxRecord{message: event}
	return true, nil
}

func (s *Store) GetSnapshot(_ context.Context, validatorID string) (entities.ValidatorSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[strings.TrimSpace(validatorID)]
	if !ok {
		return entities.ValidatorSnapshot{}, domainerrors.ErrValidatorNotFound
	}
	return snapshot, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []ports.OutboxRecord
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		records = append(records, ports.OutboxRecord{
			OutboxID:  record.message.OutboxID,
			EventType: record.message.EventType,
			Payload:   record.message.Payload,
			Status:    "pending",
			CreatedAt: record.message.CreatedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return errors.New("outbox record not found")
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

func (s *Store) CheckAndMark(_ context.Context, eventID string, payloadHash string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.eventDedup[eventID]; ok && now.Before(record.expiresAt) {
		return false, nil
	}
	s.eventDedup[eventID] = dedupRecord{payloadHash: payloadHash, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *Store) Initiate(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFunding {
		return errors.New("funding collaborator unavailable")
	}
	s.fundingCalls = append(s.fundingCalls, requestID)
	return nil
}

func (s *Store) Notify(_ context.Context, requestID string, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNotify {
		return errors.New("notification collaborator unavailable")
	}
	s.notifications = append(s.notifications, requestID+":"+outcome)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Test inspection helpers.

func (s *Store) StatusHistory(requestID string) []StatusChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var changes []StatusChange
	for _, change := range s.history {
		if change.RequestID == requestID {
			changes = append(changes, change)
		}
	}
	return changes
}

func (s *Store) FundingCalls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.fundingCalls...)
}

func (s *Store) Notifications() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.notifications...)
}

func (s *Store) VoteCount(requestID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, vote := range s.votes {
		if vote.RequestID == requestID {
			count++
		}
	}
	return count
}

func identityKey(requestID string, validatorID string) string {
	return strings.TrimSpace(requestID) + "|" + strings.TrimSpace(validatorID)
}

func paginate[T any](items []T, page int, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortPending(items []ports.PendingRequest, sortBy string, sortOrder string) {
	ascending := sortOrder == "asc"
	sort.Slice(items, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "amount":
			less = items[i].Request.Amount < items[j].Request.Amount
		case "urgency":
			less = urgencyRank(items[i].Request.Urgency) < urgencyRank(items[j].Request.Urgency)
		case "validation_count":
			less = items[i].TotalVotes < items[j].TotalVotes
		default:
			less = items[i].Request.CreatedAt.Before(items[j].Request.CreatedAt)
		}
		if ascending {
			return less
		}
		return !less
	})
}

func urgencyRank(urgency string) int {
	switch urgency {
	case "low":
		return 1
	case "medium":
		return 2
	case "high":
		return 3
	case "critical":
		return 4
	default:
		return 0
	}
}

var _ ports.VoteStore = (*Store)(nil)
var _ ports.AidRequestStore = (*Store)(nil)
var _ ports.ValidatorProfileStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.FundingInitiator = (*Store)(nil)
var _ ports.Notifier = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
