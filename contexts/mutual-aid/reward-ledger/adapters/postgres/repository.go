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

	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/reward-ledger/domain/errors"
	"almoner/contexts/mutual-aid/reward-ledger/ports"
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

// InsertEntry relies on the unique index on vote_id: a 23505 means another
// settlement already wrote this vote's entry, and the stored row is returned
// as a replay.
func (r *Repository) InsertEntry(ctx context.Context, entry entities.RewardEntry) (entities.RewardEntry, bool, error) {
	row := entryModelFromEntity(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := r.GetEntryByVote(ctx, entry.VoteID)
			if lookupErr != nil {
				return entities.RewardEntry{}, false, lookupErr
			}
			return existing, true, nil
		}
		r.logError("reward_repo_insert_failed", err,
			"entry_id", entry.EntryID,
			"vote_id", entry.VoteID,
		)
		return entities.RewardEntry{}, false, fmt.Errorf("%w: %v", domainerrors.ErrLedgerPersistence, err)
	}
	return entry, false, nil
}

func (r *Repository) GetEntryByVote(ctx context.Context, voteID string) (entities.RewardEntry, error) {
	var row rewardEntryModel
	err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RewardEntry{}, domainerrors.ErrEntryNotFound
		}
		r.logError("reward_repo_get_by_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
		return entities.RewardEntry{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEntriesByValidator(ctx context.Context, validatorID string, limit int) ([]entities.RewardEntry, error) {
	var rows []rewardEntryModel
	if err := r.db.WithContext(ctx).
		Where("validator_id = ?", strings.TrimSpace(validatorID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		r.logError("reward_repo_list_failed", err, "validator_id", strings.TrimSpace(validatorID))
		return nil, err
	}
	entries := make([]entities.RewardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return entries, nil
}

func (r *Repository) ListPendingCredits(ctx context.Context, limit int) ([]entities.RewardEntry, error) {
	var rows []rewardEntryModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.EntryStatusCreditPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		r.logError("reward_repo_pending_list_failed", err)
		return nil, err
	}
	entries := make([]entities.RewardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return entries, nil
}

func (r *Repository) MarkCredited(ctx context.Context, entryID string, creditedAt time.Time) error {
	// No-op when ApplyCredit already flipped the row in its transaction.
	update := r.db.WithContext(ctx).Model(&rewardEntryModel{}).
		Where("entry_id = ? AND status = ?", strings.TrimSpace(entryID), string(entities.EntryStatusCreditPending)).
		Updates(map[string]any{
			"status":      string(entities.EntryStatusCredited),
			"credited_at": creditedAt.UTC(),
		})
	if update.Error != nil {
		r.logError("reward_repo_mark_credited_failed", update.Error, "entry_id", entryID)
		return update.Error
	}
	return nil
}

// ApplyCredit flips the entry out of credit_pending and bumps the profile
// counters in one transaction. The status compare-and-set makes replays
// no-ops, so a settlement and the retrier can race safely.
func (r *Repository) ApplyCredit(ctx context.Context, validatorID string, entryID string, amount float64, approved bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&rewardEntryModel{}).
			Where("entry_id = ? AND status = ?", strings.TrimSpace(entryID), string(entities.EntryStatusCreditPending)).
			Updates(map[string]any{
				"status":      string(entities.EntryStatusCredited),
				"credited_at": time.Now().UTC(),
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		columns := map[string]any{
			"total_validations":  gorm.Expr("total_validations + 1"),
			"mutual_aid_balance": gorm.Expr("mutual_aid_balance + ?", amount),
		}
		if approved {
			columns["approved_validations"] = gorm.Expr("approved_validations + 1")
		}
		update := tx.Table("user_profiles").
			Where("id = ?", strings.TrimSpace(validatorID)).
			Updates(columns)
		if update.Error != nil {
			r.logError("reward_repo_profile_credit_failed", update.Error,
				"entry_id", entryID,
				"validator_id", validatorID,
			)
			return update.Error
		}
		return nil
	})
}

func (r *Repository) logError(event string, err error, args ...any) {
	fields := append([]any{
		"event", event,
		"module", "mutual-aid/reward-ledger",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("reward ledger repository operation failed", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.LedgerRepository = (*Repository)(nil)
var _ ports.ValidatorProfileUpdater = (*Repository)(nil)
