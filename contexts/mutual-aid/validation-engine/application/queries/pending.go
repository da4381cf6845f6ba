package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "almoner/contexts/mutual-aid/validation-engine/application"
	"almoner/contexts/mutual-aid/validation-engine/domain/consensus"
	"almoner/contexts/mutual-aid/validation-engine/domain/eligibility"
	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	recentWindow    = 30 * 24 * time.Hour
)

// PendingValidationsQuery filters the validation queue for one validator.
type PendingValidationsQuery struct {
	ValidatorID   string
	Category      string
	Urgency       string
	SeverityLevel int
	SortBy        string
	SortOrder     string
	Page          int
	Limit         int
}

// PendingValidationItem is one request awaiting this validator's vote,
// with its live tally and the reward the vote would earn.
type PendingValidationItem struct {
	Request    entities.AidRequestView
	Requester  entities.RequesterProfile
	Approvals  int
	Rejections int
	TotalVotes int
	Required   int
	Reward     ports.RewardQuote
}

type PendingValidationsResult struct {
	Items      []PendingValidationItem
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
	Snapshot   entities.ValidatorSnapshot
	Report     eligibility.Report
	Stats      entities.ValidatorStats
}

// PendingValidationsUseCase serves the queue of requests the caller may vote
// on: pending requests minus their own minus those they already voted on.
type PendingValidationsUseCase struct {
	Requests ports.AidRequestStore
	Votes    ports.VoteStore
	Profiles ports.ValidatorProfileStore
	Rewards  ports.RewardPolicy
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (uc PendingValidationsUseCase) PendingValidations(ctx context.Context, query PendingValidationsQuery) (PendingValidationsResult, error) {
	validatorID := strings.TrimSpace(query.ValidatorID)
	if validatorID == "" {
		return PendingValidationsResult{}, domainerrors.ErrAuthenticationRequired
	}
	filter, err := normalizePendingFilter(query)
	if err != nil {
		return PendingValidationsResult{}, err
	}

	snapshot, err := uc.Profiles.GetSnapshot(ctx, validatorID)
	if err != nil {
		return PendingValidationsResult{}, err
	}
	report := eligibility.Check(snapshot)
	if !report.Eligible {
		return PendingValidationsResult{}, domainerrors.QualificationError{Report: report}
	}

	projections, total, err := uc.Requests.ListPendingRequests(ctx, filter)
	if err != nil {
		return PendingValidationsResult{}, err
	}

	items := make([]PendingValidationItem, 0, len(projections))
	for _, projection := range projections {
		item := PendingValidationItem{
			Request:    projection.Request,
			Requester:  anonymizeRequester(projection.Requester),
			Approvals:  projection.Approvals,
			Rejections: projection.Rejections,
			TotalVotes: projection.TotalVotes,
			Required:   consensus.RequiredApprovals(projection.Request.SeverityLevel, projection.Request.Amount),
		}
		if uc.Rewards != nil {
			quote, err := uc.Rewards.Quote(ctx, projection.Request.SeverityLevel, projection.Request.Amount, snapshot.ValidationAccuracy)
			if err != nil {
				application.ResolveLogger(uc.Logger).Warn("reward quote failed for queue item",
					"event", "validation_queue_reward_quote_failed",
					"module", "mutual-aid/validation-engine",
					"layer", "application",
					"request_id", projection.Request.RequestID,
					"error", err.Error(),
				)
			} else {
				item.Reward = quote
			}
		}
		items = append(items, item)
	}

	stats, err := uc.Votes.GetValidatorStats(ctx, validatorID, uc.now().Add(-recentWindow))
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("validator stats lookup failed",
			"event", "validation_stats_lookup_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "application",
			"validator_id", validatorID,
			"error", err.Error(),
		)
		stats = entities.ValidatorStats{}
	}

	totalPages := 0
	if filter.Limit > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	return PendingValidationsResult{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    filter.Page < totalPages,
		HasPrev:    filter.Page > 1,
		Snapshot:   snapshot,
		Report:     report,
		Stats:      stats,
	}, nil
}

func (uc PendingValidationsUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizePendingFilter(query PendingValidationsQuery) (ports.PendingFilter, error) {
	filter := ports.PendingFilter{
		ForValidatorID: strings.TrimSpace(query.ValidatorID),
		Category:       strings.TrimSpace(query.Category),
		Urgency:        strings.TrimSpace(query.Urgency),
		SeverityLevel:  query.SeverityLevel,
		SortBy:         strings.TrimSpace(query.SortBy),
		SortOrder:      strings.ToLower(strings.TrimSpace(query.SortOrder)),
		Page:           query.Page,
		Limit:          query.Limit,
	}
	if filter.SeverityLevel < 0 || filter.SeverityLevel > 10 {
		return ports.PendingFilter{}, domainerrors.ErrInvalidVoteInput
	}
	switch filter.SortBy {
	case "":
		filter.SortBy = "created_at"
	case "created_at", "amount", "urgency", "validation_count":
	default:
		return ports.PendingFilter{}, domainerrors.ErrInvalidVoteInput
	}
	switch filter.SortOrder {
	case "":
		filter.SortOrder = "desc"
	case "asc", "desc":
	default:
		return ports.PendingFilter{}, domainerrors.ErrInvalidVoteInput
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
	return filter, nil
}

// anonymizeRequester masks the wallet address so validators judge the case,
// not the person.
func anonymizeRequester(profile entities.RequesterProfile) entities.RequesterProfile {
	profile.WalletAddress = maskWallet(profile.WalletAddress)
	return profile
}

func maskWallet(address string) string {
	address = strings.TrimSpace(address)
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
