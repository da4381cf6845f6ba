package postgresadapter

import (
	"time"

	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
)

type aidRequestModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	RequesterID   string     `gorm:"column:requester_id"`
	Amount        float64    `gorm:"column:amount"`
	SeverityLevel int        `gorm:"column:severity_level"`
	Category      string     `gorm:"column:category"`
	Urgency       string     `gorm:"column:urgency"`
	Reason        string     `gorm:"column:reason"`
	PublicMessage string     `gorm:"column:public_message"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

func (aidRequestModel) TableName() string {
	return "mutual_aid_requests"
}

func requestModelFromEntity(request entities.AidRequest) aidRequestModel {
	return aidRequestModel{
		ID:            request.RequestID,
		RequesterID:   request.RequesterID,
		Amount:        request.Amount,
		SeverityLevel: request.SeverityLevel,
		Category:      request.Category,
		Urgency:       string(request.Urgency),
		Reason:        request.Reason,
		PublicMessage: request.PublicMessage,
		Status:        string(request.Status),
		CreatedAt:     request.CreatedAt.UTC(),
		UpdatedAt:     request.UpdatedAt.UTC(),
		ExpiresAt:     normalizeOptionalTime(request.ExpiresAt),
		ResolvedAt:    normalizeOptionalTime(request.ResolvedAt),
		CancelledAt:   normalizeOptionalTime(request.CancelledAt),
		CompletedAt:   normalizeOptionalTime(request.CompletedAt),
	}
}

func (m aidRequestModel) toEntity() entities.AidRequest {
	return entities.AidRequest{
		RequestID:     m.ID,
		RequesterID:   m.RequesterID,
		Amount:        m.Amount,
		SeverityLevel: m.SeverityLevel,
		Category:      m.Category,
		Urgency:       entities.RequestUrgency(m.Urgency),
		Reason:        m.Reason,
		PublicMessage: m.PublicMessage,
		Status:        entities.RequestStatus(m.Status),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		ExpiresAt:     normalizeOptionalTime(m.ExpiresAt),
		ResolvedAt:    normalizeOptionalTime(m.ResolvedAt),
		CancelledAt:   normalizeOptionalTime(m.CancelledAt),
		CompletedAt:   normalizeOptionalTime(m.CompletedAt),
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

func (m statusHistoryModel) toEntity() entities.StatusChange {
	return entities.StatusChange{
		RequestID:  m.RequestID,
		FromStatus: entities.RequestStatus(m.FromStatus),
		ToStatus:   entities.RequestStatus(m.ToStatus),
		ChangedBy:  m.ChangedBy,
		Reason:     m.Reason,
		ChangedAt:  m.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
