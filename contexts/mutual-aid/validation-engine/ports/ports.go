package ports

import (
	"context"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
)

// PendingFilter selects open aid requests for the validation queue.
// ForValidatorID excludes the caller's own requests and requests the caller
// has already voted on.
type PendingFilter struct {
	ForValidatorID string
	Category       string
	Urgency        string
	SeverityLevel  int
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// PendingRequest is one row of the validation queue with its live tally.
type PendingRequest struct {
	Request    entities.AidRequestView
	Requester  entities.RequesterProfile
	Approvals  int
	Rejections int
	TotalVotes int
}

// HistoryFilter selects a validator's past votes.
type HistoryFilter struct {
	Decision  string
	DateFrom  *time.Time
	DateTo    *time.Time
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// HistoryItem pairs a vote with the request it was cast on.
type HistoryItem struct {
	Vote    entities.ValidationVote
	Request entities.AidRequestView
}

// Resolution is the single pending -> approved/rejected transition request.
type Resolution struct {
	RequestID    string
	Approved     bool
	Reason       string
	ApproveCount int
	RejectCount  int
	Required     int
	ResolvedAt   time.Time
}

// VoteStore persists validation votes. InsertVote must enforce the
// (request_id, validator_id) uniqueness atomically and append the outbox
// message in the same transaction; a duplicate returns ErrAlreadyValidated.
type VoteStore interface {
	InsertVote(ctx context.Context, vote entities.ValidationVote, event OutboxMessage) error
	GetVote(ctx context.Context, voteID string) (entities.ValidationVote, error)
	ListVotesByRequest(ctx context.Context, requestID string) ([]entities.ValidationVote, error)
	ListValidatorHistory(ctx context.Context, validatorID string, filter HistoryFilter) ([]HistoryItem, int, error)
	GetValidatorStats(ctx context.Context, validatorID string, recentSince time.Time) (entities.ValidatorStats, error)
}

// AidRequestStore reads request projections and owns the consensus-side
// status transition. ResolvePending applies the compare-and-set transition
// out of pending/under_review, appends the status-history row and the outbox
// message in one transaction, and reports applied=false when another caller
// already resolved the request.
type AidRequestStore interface {
	GetRequest(ctx context.Context, requestID string) (entities.AidRequestView, error)
	ListPendingRequests(ctx context.Context, filter PendingFilter) ([]PendingRequest, int, error)
	ResolvePending(ctx context.Context, resolution Resolution, event OutboxMessage) (bool, error)
}

// ValidatorProfileStore reads validator snapshots from the external profile
// service's schema.
type ValidatorProfileStore interface {
	GetSnapshot(ctx context.Context, validatorID string) (entities.ValidatorSnapshot, error)
}

// SnapshotCache is an optional read-through cache in front of the profile
// store.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, validatorID string) (entities.ValidatorSnapshot, bool, error)
	PutSnapshot(ctx context.Context, snapshot entities.ValidatorSnapshot, ttl time.Duration) error
}

// RewardQuote is the estimated payout shown in the validation queue.
type RewardQuote struct {
	Base       float64
	Multiplier float64
	Total      float64
}

// RewardSettlementInput keys a settlement to a single accepted vote.
type RewardSettlementInput struct {
	VoteID        string
	RequestID     string
	ValidatorID   string
	Decision      string
	SeverityLevel int
	Amount        float64
	Accuracy      float64
}

// RewardSettlement reports the ledger entry created (or replayed) for a vote.
type RewardSettlement struct {
	EntryID       string
	VoteID        string
	Amount        float64
	Base          float64
	SeverityMult  float64
	AmountMult    float64
	AccuracyBonus float64
	Credited      bool
	Replayed      bool
}

// RewardPolicy is the reward-ledger collaborator. Settle is idempotent on
// VoteID; failures are non-fatal to vote acceptance.
type RewardPolicy interface {
	Quote(ctx context.Context, severityLevel int, amount float64, accuracy float64) (RewardQuote, error)
	Settle(ctx context.Context, input RewardSettlementInput) (RewardSettlement, error)
}

// FundingInitiator starts fund distribution for an approved request.
// Implementations are idempotent on requestID.
type FundingInitiator interface {
	Initiate(ctx context.Context, requestID string) error
}

// Notifier informs the requester of the final outcome.
type Notifier interface {
	Notify(ctx context.Context, requestID string, outcome string) error
}

// EventEnvelope is the canonical event shape carried through outbox and bus.
type EventEnvelope struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	SourceService  string         `json:"source_service"`
	OccurredAtUTC  time.Time      `json:"occurred_at_utc"`
	CorrelationID  string         `json:"correlation_id"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	PayloadVersion int            `json:"payload_version"`
	Payload        map[string]any `json:"payload"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRecord struct {
	OutboxID    string
	EventType   string
	Payload     []byte
	Status      string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventHandler func(ctx context.Context, event EventEnvelope) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, group string, handler EventHandler) error
}

// EventDedupStore makes consumer side effects replay-safe. CheckAndMark
// returns false when the event was already processed.
type EventDedupStore interface {
	CheckAndMark(ctx context.Context, eventID string, payloadHash string, now time.Time, ttl time.Duration) (bool, error)
}

// ResolutionDedupKey is the dedup key shared between the inline resolution
// dispatch and the outbox-driven consumer: whichever path runs the side
// effects marks this key, so one resolution funds and notifies once.
func ResolutionDedupKey(requestID string) string {
	return "resolution:" + requestID
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
