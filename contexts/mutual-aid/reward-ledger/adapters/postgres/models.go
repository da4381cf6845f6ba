package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
)

type rewardEntryModel struct {
	EntryID       string     `gorm:"column:entry_id;primaryKey"`
	VoteID        string     `gorm:"column:vote_id;uniqueIndex:uniq_reward_vote"`
	RequestID     string     `gorm:"column:request_id"`
	ValidatorID   string     `gorm:"column:validator_id"`
	Decision      string     `gorm:"column:decision"`
	Amount        float64    `gorm:"column:amount"`
	Base          float64    `gorm:"column:base"`
	SeverityMult  float64    `gorm:"column:severity_multiplier"`
	AmountMult    float64    `gorm:"column:amount_multiplier"`
	AccuracyBonus float64    `gorm:"column:accuracy_bonus"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	CreditedAt    *time.Time `gorm:"column:credited_at"`
}

func (rewardEntryModel) TableName() string {
	return "validation_reward_entries"
}

func entryModelFromEntity(entry entities.RewardEntry) rewardEntryModel {
	return rewardEntryModel{
		EntryID:       entry.EntryID,
		VoteID:        entry.VoteID,
		RequestID:     entry.RequestID,
		ValidatorID:   entry.ValidatorID,
		Decision:      entry.Decision,
		Amount:        entry.Amount,
		Base:          entry.Base,
		SeverityMult:  entry.SeverityMult,
		AmountMult:    entry.AmountMult,
		AccuracyBonus: entry.AccuracyBonus,
		Status:        string(entry.Status),
		CreatedAt:     entry.CreatedAt.UTC(),
		CreditedAt:    normalizeOptionalTime(entry.CreditedAt),
	}
}

func (m rewardEntryModel) toEntity() entities.RewardEntry {
	return entities.RewardEntry{
		EntryID:       m.EntryID,
		VoteID:        m.VoteID,
		RequestID:     m.RequestID,
		ValidatorID:   m.ValidatorID,
		Decision:      m.Decision,
		Amount:        m.Amount,
		Base:          m.Base,
		SeverityMult:  m.SeverityMult,
		AmountMult:    m.AmountMult,
		AccuracyBonus: m.AccuracyBonus,
		Status:        entities.EntryStatus(m.Status),
		CreatedAt:     m.CreatedAt.UTC(),
		CreditedAt:    normalizeOptionalTime(m.CreditedAt),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

// UUIDGenerator creates UUIDv4 identifiers for ledger entries.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// SystemClock is the production clock, always UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
