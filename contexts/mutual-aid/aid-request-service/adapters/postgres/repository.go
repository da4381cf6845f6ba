package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) CreateRequest(ctx context.Context, request entities.AidRequest) error {
	row := requestModelFromEntity(request)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRequestPersistence
		}
		r.logError("aid_request_repo_create_failed", err,
			"request_id", request.RequestID,
			"requester_id", request.RequesterID,
		)
		return fmt.Errorf("%w: %v", domainerrors.ErrRequestPersistence, err)
	}
	return nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID string) (entities.AidRequest, error) {
	var row aidRequestModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AidRequest{}, domainerrors.ErrRequestNotFound
		}
		r.logError("aid_request_repo_get_failed", err, "request_id", strings.TrimSpace(requestID))
		return entities.AidRequest{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListMyRequests(ctx context.Context, filter ports.MyRequestsFilter) ([]entities.AidRequest, int, error) {
	tx := r.db.WithContext(ctx).Model(&aidRequestModel{}).
		Where("requester_id = ?", strings.TrimSpace(filter.RequesterID))
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		r.logError("aid_request_repo_list_count_failed", err, "requester_id", filter.RequesterID)
		return nil, 0, err
	}

	column := "created_at"
	switch filter.SortBy {
	case "updated_at", "amount", "status":
		column = filter.SortBy
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}
	var rows []aidRequestModel
	if err := tx.Order(column + " " + direction).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&rows).Error; err != nil {
		r.logError("aid_request_repo_list_failed", err, "requester_id", filter.RequesterID)
		return nil, 0, err
	}

	requests := make([]entities.AidRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, row.toEntity())
	}
	return requests, int(total), nil
}

func (r *Repository) ListStatusHistory(ctx context.Context, requestID string) ([]entities.StatusChange, error) {
	var rows []statusHistoryModel
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", strings.TrimSpace(requestID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		r.logError("aid_request_repo_history_failed", err, "request_id", strings.TrimSpace(requestID))
		return nil, err
	}
	changes := make([]entities.StatusChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, row.toEntity())
	}
	return changes, nil
}

func (r *Repository) HasOpenRequest(ctx context.Context, requesterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&aidRequestModel{}).
		Where("requester_id = ? AND status IN ?", strings.TrimSpace(requesterID),
			[]string{string(entities.RequestStatusPending), string(entities.RequestStatusUnderReview)}).
		Count(&count).
		Error
	if err != nil {
		r.logError("aid_request_repo_open_check_failed", err, "requester_id", requesterID)
		return false, err
	}
	return count > 0, nil
}

// CancelPending holds the row lock across the status check so a concurrent
// consensus resolution and a requester cancel cannot both win.
func (r *Repository) CancelPending(
	ctx context.Context,
	requestID string,
	requesterID string,
	cancelledAt time.Time,
	reason string,
) (entities.AidRequest, error) {
	requestID = strings.TrimSpace(requestID)
	cancelledAt = cancelledAt.UTC()

	var cancelled entities.AidRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current aidRequestModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&current).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrRequestNotFound
			}
			return err
		}
		if !strings.EqualFold(current.RequesterID, strings.TrimSpace(requesterID)) {
			return domainerrors.ErrNotRequestOwner
		}
		if !entities.RequestStatus(current.Status).IsOpen() {
			return domainerrors.ErrCannotCancel
		}

		if err := tx.Model(&aidRequestModel{}).
			Where("id = ?", requestID).
			Updates(map[string]any{
				"status":       string(entities.RequestStatusCancelled),
				"cancelled_at": cancelledAt,
				"updated_at":   cancelledAt,
			}).Error; err != nil {
			return err
		}
		history := statusHistoryModel{
			RequestID:  requestID,
			FromStatus: current.Status,
			ToStatus:   string(entities.RequestStatusCancelled),
			ChangedBy:  strings.TrimSpace(requesterID),
			Reason:     reason,
			CreatedAt:  cancelledAt,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		cancelled = current.toEntity()
		cancelled.Status = entities.RequestStatusCancelled
		cancelled.CancelledAt = &cancelledAt
		cancelled.UpdatedAt = cancelledAt
		return nil
	})
	if err != nil {
		if !errors.Is(err, domainerrors.ErrRequestNotFound) &&
			!errors.Is(err, domainerrors.ErrNotRequestOwner) &&
			!errors.Is(err, domainerrors.ErrCannotCancel) {
			r.logError("aid_request_repo_cancel_failed", err, "request_id", requestID)
		}
		return entities.AidRequest{}, err
	}
	return cancelled, nil
}

func (r *Repository) GetRequesterStats(
	ctx context.Context,
	requesterID string,
	recentSince time.Time,
) (entities.RequesterStats, error) {
	requesterID = strings.TrimSpace(requesterID)
	var rows []aidRequestModel
	if err := r.db.WithContext(ctx).
		Select("status", "amount", "created_at").
		Where("requester_id = ?", requesterID).
		Find(&rows).Error; err != nil {
		r.logError("aid_request_repo_stats_failed", err, "requester_id", requesterID)
		return entities.RequesterStats{}, err
	}

	var stats entities.RequesterStats
	for _, row := range rows {
		stats.TotalRequests++
		switch entities.RequestStatus(row.Status) {
		case entities.RequestStatusPending, entities.RequestStatusUnderReview:
			stats.PendingRequests++
		case entities.RequestStatusApproved:
			stats.ApprovedRequests++
			stats.TotalApprovedAmount += row.Amount
		case entities.RequestStatusCompleted:
			stats.CompletedRequests++
			stats.TotalApprovedAmount += row.Amount
		case entities.RequestStatusRejected:
			stats.RejectedRequests++
		}
		if !row.CreatedAt.Before(recentSince.UTC()) {
			stats.RecentRequests++
		}
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.ApprovedRequests+stats.CompletedRequests) / float64(stats.TotalRequests) * 100
	}
	stats.CanSubmitNew = stats.PendingRequests == 0
	return stats, nil
}

func (r *Repository) logError(event string, err error, args ...any) {
	fields := append([]any{
		"event", event,
		"module", "mutual-aid/aid-request-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("aid request repository operation failed", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
