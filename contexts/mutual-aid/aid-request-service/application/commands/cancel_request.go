package commands

import (
	"context"
	"log/slog"
	"strings"

	application "almoner/contexts/mutual-aid/aid-request-service/application"
	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

const cancelledByRequesterReason = "cancelled by requester"

type CancelRequestCommand struct {
	RequestID   string
	RequesterID string
}

type CancelRequestUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

// Execute cancels the caller's own request. The repository applies the
// transition as a compare-and-set guarded on pending/under_review, so a
// concurrent consensus resolution wins cleanly and the caller sees
// ErrCannotCancel.
func (uc CancelRequestUseCase) Execute(ctx context.Context, cmd CancelRequestCommand) (entities.AidRequest, error) {
	logger := application.ResolveLogger(uc.Logger)

	requesterID := strings.TrimSpace(cmd.RequesterID)
	if requesterID == "" {
		return entities.AidRequest{}, domainerrors.ErrAuthenticationRequired
	}
	requestID := strings.TrimSpace(cmd.RequestID)
	if requestID == "" {
		return entities.AidRequest{}, domainerrors.ErrInvalidRequestInput
	}

	cancelled, err := uc.Repository.CancelPending(ctx, requestID, requesterID, uc.Clock.Now().UTC(), cancelledByRequesterReason)
	if err != nil {
		return entities.AidRequest{}, err
	}
	logger.Info("aid request cancelled by requester",
		"event", "aid_request_cancelled",
		"module", "mutual-aid/aid-request-service",
		"layer", "application",
		"request_id", requestID,
		"requester_id", requesterID,
	)
	return cancelled, nil
}
