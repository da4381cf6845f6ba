package postgresadapter

import (
	"strings"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

type validationVoteModel struct {
	ID                string    `gorm:"column:id;primaryKey"`
	RequestID         string    `gorm:"column:request_id;uniqueIndex:uniq_validation_request_validator"`
	ValidatorID       string    `gorm:"column:validator_id;uniqueIndex:uniq_validation_request_validator"`
	Decision          string    `gorm:"column:decision"`
	ConfidenceScore   float64   `gorm:"column:confidence_score"`
	Reason            string    `gorm:"column:reason"`
	ReviewTimeSeconds int       `gorm:"column:review_time_seconds"`
	IPAddress         string    `gorm:"column:ip_address"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (validationVoteModel) TableName() string {
	return "mutual_aid_validations"
}

func voteModelFromEntity(vote entities.ValidationVote) validationVoteModel {
	row := validationVoteModel{
		ID:                strings.TrimSpace(vote.VoteID),
		RequestID:         strings.TrimSpace(vote.RequestID),
		ValidatorID:       strings.TrimSpace(vote.ValidatorID),
		Decision:          string(vote.Decision),
		ConfidenceScore:   vote.ConfidenceScore,
		Reason:            strings.TrimSpace(vote.Reason),
		ReviewTimeSeconds: vote.ReviewTimeSeconds,
		IPAddress:         strings.TrimSpace(vote.IPAddress),
		CreatedAt:         vote.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m validationVoteModel) toEntity() entities.ValidationVote {
	return entities.ValidationVote{
		VoteID:            m.ID,
		RequestID:         m.RequestID,
		ValidatorID:       m.ValidatorID,
		Decision:          entities.VoteDecision(m.Decision),
		ConfidenceScore:   m.ConfidenceScore,
		Reason:            m.Reason,
		ReviewTimeSeconds: m.ReviewTimeSeconds,
		IPAddress:         m.IPAddress,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

type aidRequestModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	RequesterID   string     `gorm:"column:requester_id"`
	Amount        float64    `gorm:"column:amount"`
	SeverityLevel int        `gorm:"column:severity_level"`
	Category      string     `gorm:"column:category"`
	Urgency       string     `gorm:"column:urgency"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (aidRequestModel) TableName() string {
	return "mutual_aid_requests"
}

func (m aidRequestModel) toEntity() entities.AidRequestView {
	return entities.AidRequestView{
		RequestID:     m.ID,
		RequesterID:   m.RequesterID,
		Amount:        m.Amount,
		SeverityLevel: m.SeverityLevel,
		Category:      m.Category,
		Urgency:       m.Urgency,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt.UTC(),
		ExpiresAt:     normalizeOptionalTime(m.ExpiresAt),
	}
}

type statusHistoryModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID  string    `gorm:"column:request_id"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status"`
	ChangedBy  string    `gorm:"column:changed_by"`
	Reason     string    `gorm:"column:reason"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (statusHistoryModel) TableName() string {
	return "request_status_history"
}

// userProfileModel is a read-only projection of the profile service's table.
type userProfileModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	WalletAddress      string    `gorm:"column:wallet_address"`
	ReputationScore    float64   `gorm:"column:reputation_score"`
	ValidationAccuracy float64   `gorm:"column:validation_accuracy"`
	IsActiveValidator  bool      `gorm:"column:is_active_validator"`
	TotalValidations   int       `gorm:"column:total_validations"`
	TotalContributions float64   `gorm:"column:total_contributions"`
	VerificationStatus string    `gorm:"column:verification_status"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (userProfileModel) TableName() string {
	return "user_profiles"
}

func (m userProfileModel) toSnapshot() entities.ValidatorSnapshot {
	return entities.ValidatorSnapshot{
		ValidatorID:        m.ID,
		ReputationScore:    m.ReputationScore,
		ValidationAccuracy: m.ValidationAccuracy,
		IsActiveValidator:  m.IsActiveValidator,
		TotalValidations:   m.TotalValidations,
	}
}

func (m userProfileModel) toRequesterProfile() entities.RequesterProfile {
	return entities.RequesterProfile{
		WalletAddress:      m.WalletAddress,
		ReputationScore:    m.ReputationScore,
		TotalContributions: m.TotalContributions,
		VerificationStatus: m.VerificationStatus,
		MemberSince:        m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "validation_outbox"
}

func outboxModelFromMessage(message ports.OutboxMessage) *outboxModel {
	createdAt := message.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &outboxModel{
		OutboxID:     strings.TrimSpace(message.OutboxID),
		EventType:    strings.TrimSpace(message.EventType),
		PartitionKey: strings.TrimSpace(message.PartitionKey),
		Payload:      message.Payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "validation_event_dedup"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
