package queries

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

// ValidationHistoryQuery pages through a validator's past votes.
type ValidationHistoryQuery struct {
	ValidatorID string
	Filter      ports.HistoryFilter
}

type ValidationHistoryResult struct {
	Items      []ports.HistoryItem
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

type ValidationHistoryUseCase struct {
	Votes  ports.VoteStore
	Logger *slog.Logger
}

func (uc ValidationHistoryUseCase) ValidationHistory(ctx context.Context, query ValidationHistoryQuery) (ValidationHistoryResult, error) {
	validatorID := strings.TrimSpace(query.ValidatorID)
	if validatorID == "" {
		return ValidationHistoryResult{}, domainerrors.ErrAuthenticationRequired
	}
	filter := query.Filter
	switch filter.Decision {
	case "", "approve", "reject":
	default:
		return ValidationHistoryResult{}, domainerrors.ErrInvalidVoteInput
	}
	switch filter.SortBy {
	case "":
		filter.SortBy = "created_at"
	case "created_at", "confidence_score":
	default:
		return ValidationHistoryResult{}, domainerrors.ErrInvalidVoteInput
	}
	switch strings.ToLower(filter.SortOrder) {
	case "":
		filter.SortOrder = "desc"
	case "asc", "desc":
		filter.SortOrder = strings.ToLower(filter.SortOrder)
	default:
		return ValidationHistoryResult{}, domainerrors.ErrInvalidVoteInput
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	items, total, err := uc.Votes.ListValidatorHistory(ctx, validatorID, filter)
	if err != nil {
		return ValidationHistoryResult{}, err
	}
	totalPages := (total + filter.Limit - 1) / filter.Limit
	return ValidationHistoryResult{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    filter.Page < totalPages,
		HasPrev:    filter.Page > 1,
	}, nil
}
