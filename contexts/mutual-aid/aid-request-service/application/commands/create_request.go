package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	application "almoner/contexts/mutual-aid/aid-request-service/application"
	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

const (
	minReasonChars = 20
	maxReasonChars = 1000
	maxAmount      = 10000.0
	defaultExpiry  = 30 * 24 * time.Hour
)

type CreateRequestCommand struct {
	RequesterID   string
	Amount        float64
	SeverityLevel int
	Category      string
	Urgency       string
	Reason        string
	PublicMessage string
}

type CreateRequestUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc CreateRequestUseCase) Execute(ctx context.Context, cmd CreateRequestCommand) (entities.AidRequest, error) {
	logger := application.ResolveLogger(uc.Logger)

	requesterID := strings.TrimSpace(cmd.RequesterID)
	if requesterID == "" {
		return entities.AidRequest{}, domainerrors.ErrAuthenticationRequired
	}
	urgency, ok := entities.ParseUrgency(cmd.Urgency)
	if !ok {
		return entities.AidRequest{}, domainerrors.ErrInvalidRequestInput
	}
	reason := strings.TrimSpace(cmd.Reason)
	reasonLen := utf8.RuneCountInString(reason)
	if reasonLen < minReasonChars || reasonLen > maxReasonChars {
		return entities.AidRequest{}, domainerrors.ErrInvalidRequestInput
	}
	if cmd.Amount <= 0 || cmd.Amount > maxAmount {
		return entities.AidRequest{}, domainerrors.ErrInvalidRequestInput
	}

	// One open plea per member at a time.
	open, err := uc.Repository.HasOpenRequest(ctx, requesterID)
	if err != nil {
		return entities.AidRequest{}, err
	}
	if open {
		return entities.AidRequest{}, domainerrors.ErrOpenRequestExists
	}

	requestID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.AidRequest{}, err
	}
	now := uc.Clock.Now().UTC()
	expiresAt := now.Add(defaultExpiry)
	request := entities.AidRequest{
		RequestID:     requestID,
		RequesterID:   requesterID,
		Amount:        cmd.Amount,
		SeverityLevel: cmd.SeverityLevel,
		Category:      strings.TrimSpace(cmd.Category),
		Urgency:       urgency,
		Reason:        reason,
		PublicMessage: strings.TrimSpace(cmd.PublicMessage),
		Status:        entities.RequestStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     &expiresAt,
	}
	if !request.ValidateCreate() {
		return entities.AidRequest{}, domainerrors.ErrInvalidRequestInput
	}
	if err := uc.Repository.CreateRequest(ctx, request); err != nil {
		return entities.AidRequest{}, err
	}
	logger.Info("aid request created",
		"event", "aid_request_created",
		"module", "mutual-aid/aid-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"requester_id", request.RequesterID,
		"amount", request.Amount,
		"severity_level", request.SeverityLevel,
	)
	return request, nil
}
