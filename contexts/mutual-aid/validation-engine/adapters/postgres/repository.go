package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	"almoner/contexts/mutual-aid/validation-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
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

// InsertVote writes the vote and its outbox message in one transaction. The
// unique index on (request_id, validator_id) is the dedup authority; a 23505
// from a concurrent duplicate maps to ErrAlreadyValidated.
func (r *Repository) InsertVote(ctx context.Context, vote entities.ValidationVote, event ports.OutboxMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := voteModelFromEntity(vote)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyValidated
			}
			r.logError("validation_repo_insert_vote_failed", err,
				"vote_id", vote.VoteID,
				"request_id", vote.RequestID,
				"validator_id", vote.ValidatorID,
			)
			return fmt.Errorf("%w: %v", domainerrors.ErrVotePersistenceFailure, err)
		}
		if err := tx.Create(outboxModelFromMessage(event)).Error; err != nil {
			r.logError("validation_repo_insert_outbox_failed", err, "outbox_id", event.OutboxID)
			return err
		}
		return nil
	})
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.ValidationVote, error) {
	var row validationVoteModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ValidationVote{}, domainerrors.ErrVoteNotFound
		}
		r.logError("validation_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
		return entities.ValidationVote{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListVotesByRequest(ctx context.Context, requestID string) ([]entities.ValidationVote, error) {
	var rows []validationVoteModel
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", strings.TrimSpace(requestID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		r.logError("validation_repo_list_votes_failed", err, "request_id", strings.TrimSpace(requestID))
		return nil, err
	}
	votes := make([]entities.ValidationVote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toEntity())
	}
	return votes, nil
}

func (r *Repository) ListValidatorHistory(
	ctx context.Context,
	validatorID string,
	filter ports.HistoryFilter,
) ([]ports.HistoryItem, int, error) {
	tx := r.db.WithContext(ctx).Model(&validationVoteModel{}).
		Where("validator_id = ?", strings.TrimSpace(validatorID))
	if filter.Decision != "" {
		tx = tx.Where("decision = ?", filter.Decision)
	}
	if filter.DateFrom != nil {
		tx = tx.Where("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		tx = tx.Where("created_at <= ?", filter.DateTo.UTC())
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		r.logError("validation_repo_history_count_failed", err, "validator_id", strings.TrimSpace(validatorID))
		return nil, 0, err
	}

	column := "created_at"
	if filter.SortBy == "confidence_score" {
		column = "confidence_score"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}
	var rows []validationVoteModel
	if err := tx.Order(column + " " + direction).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&rows).Error; err != nil {
		r.logError("validation_repo_history_list_failed", err, "validator_id", strings.TrimSpace(validatorID))
		return nil, 0, err
	}

	items := make([]ports.HistoryItem, 0, len(rows))
	for _, row := range rows {
		item := ports.HistoryItem{Vote: row.toEntity()}
		var request aidRequestModel
		err := r.db.WithContext(ctx).Where("id = ?", row.RequestID).First(&request).Error
		if err == nil {
			item.Request = request.toEntity()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logError("validation_repo_history_request_failed", err, "request_id", row.RequestID)
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, int(total), nil
}

func (r *Repository) GetValidatorStats(
	ctx context.Context,
	validatorID string,
	recentSince time.Time,
) (entities.ValidatorStats, error) {
	validatorID = strings.TrimSpace(validatorID)
	var stats entities.ValidatorStats

	counts := []struct {
		dest  *int
		query *gorm.DB
	}{
		{&stats.TotalValidations, r.db.WithContext(ctx).Model(&validationVoteModel{}).
			Where("validator_id = ?", validatorID)},
		{&stats.RecentValidations, r.db.WithContext(ctx).Model(&validationVoteModel{}).
			Where("validator_id = ? AND created_at >= ?", validatorID, recentSince.UTC())},
		{&stats.ApprovedValidations, r.db.WithContext(ctx).Model(&validationVoteModel{}).
			Where("validator_id = ? AND decision = ?", validatorID, string(entities.VoteDecisionApprove))},
	}
	for _, c := range counts {
		var value int64
		if err := c.query.Count(&value).Error; err != nil {
			r.logError("validation_repo_stats_failed", err, "validator_id", validatorID)
			return entities.ValidatorStats{}, err
		}
		*c.dest = int(value)
	}
	if stats.TotalValidations > 0 {
		stats.ApprovalRate = float64(stats.ApprovedValidations) / float64(stats.TotalValidations) * 100
	}
	return stats, nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID string) (entities.AidRequestView, error) {
	var row aidRequestModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AidRequestView{}, domainerrors.ErrRequestNotFound
		}
		r.logError("validation_repo_get_request_failed", err, "request_id", strings.TrimSpace(requestID))
		return entities.AidRequestView{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPendingRequests(
	ctx context.Context,
	filter ports.PendingFilter,
) ([]ports.PendingRequest, int, error) {
	validatorID := strings.TrimSpace(filter.ForValidatorID)
	tx := r.db.WithContext(ctx).Model(&aidRequestModel{}).
		Where("status = ?", "pending").
		Where("requester_id <> ?", validatorID).
		Where("NOT EXISTS (SELECT 1 FROM mutual_aid_validations v WHERE v.request_id = mutual_aid_requests.id AND v.validator_id = ?)", validatorID)
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.Urgency != "" {
		tx = tx.Where("urgency = ?", filter.Urgency)
	}
	if filter.SeverityLevel > 0 {
		tx = tx.Where("severity_level = ?", filter.SeverityLevel)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		r.logError("validation_repo_pending_count_failed", err, "validator_id", validatorID)
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}
	var order string
	switch filter.SortBy {
	case "amount":
		order = "amount " + direction
	case "urgency":
		order = "CASE urgency WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END " + direction
	case "validation_count":
		order = "(SELECT COUNT(*) FROM mutual_aid_validations v WHERE v.request_id = mutual_aid_requests.id) " + direction
	default:
		order = "created_at " + direction
	}

	var rows []aidRequestModel
	if err := tx.Order(order).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&rows).Error; err != nil {
		r.logError("validation_repo_pending_list_failed", err, "validator_id", validatorID)
		return nil, 0, err
	}

	projections := make([]ports.PendingRequest, 0, len(rows))
	for _, row := range rows {
		projection := ports.PendingRequest{Request: row.toEntity()}

		var profile userProfileModel
		err := r.db.WithContext(ctx).Where("id = ?", row.RequesterID).First(&profile).Error
		if err == nil {
			projection.Requester = profile.toRequesterProfile()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logError("validation_repo_requester_profile_failed", err, "requester_id", row.RequesterID)
			return nil, 0, err
		}

		type tallyRow struct {
			Decision string
			Count    int
		}
		var tallies []tallyRow
		if err := r.db.WithContext(ctx).Model(&validationVoteModel{}).
			Select("decision, COUNT(*) AS count").
			Where("request_id = ?", row.ID).
			Group("decision").
			Scan(&tallies).Error; err != nil {
			r.logError("validation_repo_tally_failed", err, "request_id", row.ID)
			return nil, 0, err
		}
		for _, tally := range tallies {
			projection.TotalVotes += tally.Count
			if tally.Decision == string(entities.VoteDecisionApprove) {
				projection.Approvals += tally.Count
			} else {
				projection.Rejections += tally.Count
			}
		}
		projections = append(projections, projection)
	}
	return projections, int(total), nil
}

// ResolvePending performs the compare-and-set out of pending/under_review.
// The UPDATE's WHERE clause is the at-most-once guard: zero rows affected
// means another concurrent resolver already won, and the call is a no-op.
func (r *Repository) ResolvePending(ctx context.Context, resolution ports.Resolution, event ports.OutboxMessage) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		toStatus := "rejected"
		if resolution.Approved {
			toStatus = "approved"
		}
		resolvedAt := resolution.ResolvedAt.UTC()
		requestID := strings.TrimSpace(resolution.RequestID)

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
		if current.Status != "pending" && current.Status != "under_review" {
			return nil
		}

		if err := tx.Model(&aidRequestModel{}).
			Where("id = ?", requestID).
			Updates(map[string]any{
				"status":      toStatus,
				"resolved_at": resolvedAt,
				"updated_at":  resolvedAt,
			}).Error; err != nil {
			return err
		}
		applied = true
		history := statusHistoryModel{
			RequestID:  requestID,
			FromStatus: current.Status,
			ToStatus:   toStatus,
			ChangedBy:  "system",
			Reason:     resolution.Reason,
			CreatedAt:  resolvedAt,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return tx.Create(outboxModelFromMessage(event)).Error
	})
	if err != nil {
		if !errors.Is(err, domainerrors.ErrRequestNotFound) {
			r.logError("validation_repo_resolve_failed", err, "request_id", resolution.RequestID)
		}
		return false, err
	}
	return applied, nil
}

func (r *Repository) GetSnapshot(ctx context.Context, validatorID string) (entities.ValidatorSnapshot, error) {
	var row userProfileModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(validatorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ValidatorSnapshot{}, domainerrors.ErrValidatorNotFound
		}
		r.logError("validation_repo_get_snapshot_failed", err, "validator_id", strings.TrimSpace(validatorID))
		return entities.ValidatorSnapshot{}, err
	}
	return row.toSnapshot(), nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		r.logError("validation_repo_outbox_list_failed", err)
		return nil, err
	}
	records := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ports.OutboxRecord{
			OutboxID:    row.OutboxID,
			EventType:   row.EventType,
			Payload:     row.Payload,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt.UTC(),
			PublishedAt: row.PublishedAt,
		})
	}
	return records, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	publishedAtUTC := publishedAt.UTC()
	update := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAtUTC,
		})
	if update.Error != nil {
		r.logError("validation_repo_outbox_mark_failed", update.Error, "outbox_id", outboxID)
		return update.Error
	}
	return nil
}

func (r *Repository) CheckAndMark(
	ctx context.Context,
	eventID string,
	payloadHash string,
	now time.Time,
	ttl time.Duration,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: payloadHash,
		ExpiresAt:   now.Add(ttl).UTC(),
		ProcessedAt: now.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		r.logError("validation_repo_dedup_failed", err, "event_id", eventID)
		return false, err
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, args ...any) {
	fields := append([]any{
		"event", event,
		"module", "mutual-aid/validation-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("validation repository operation failed", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.VoteStore = (*Repository)(nil)
var _ ports.AidRequestStore = (*Repository)(nil)
var _ ports.ValidatorProfileStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
