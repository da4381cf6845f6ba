package commands

import (
	"context"
	"log/slog"
	"time"

	application "almoner/contexts/mutual-aid/validation-engine/application"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

// ResolutionDispatcher fires downstream side effects after a non-no-op
// transition: funding initiation for approvals, notification for both
// outcomes. The transition is already committed, so downstream failures are
// logged and left to the outbox-driven retry worker; they never revert the
// resolution. When every side effect succeeds the dispatcher marks the
// shared resolution dedup key, which tells the outbox consumer this
// resolution is already handled; a failed or unmarked dispatch leaves the
// key clear so the consumer re-drives both effects.
type ResolutionDispatcher struct {
	Funding       ports.FundingInitiator
	Notifications ports.Notifier
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (d ResolutionDispatcher) Dispatch(ctx context.Context, resolution ports.Resolution) {
	logger := application.ResolveLogger(d.Logger)
	outcome := "rejected"
	if resolution.Approved {
		outcome = "approved"
	}

	dispatched := true
	if resolution.Approved && d.Funding != nil {
		if err := d.Funding.Initiate(ctx, resolution.RequestID); err != nil {
			dispatched = false
			logger.Error("funding initiation failed; retried from outbox",
				"event", "validation_funding_initiate_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "application",
				"request_id", resolution.RequestID,
				"error", err.Error(),
			)
		}
	}
	if d.Notifications != nil {
		if err := d.Notifications.Notify(ctx, resolution.RequestID, outcome); err != nil {
			dispatched = false
			logger.Error("resolution notification failed; retried from outbox",
				"event", "validation_notify_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "application",
				"request_id", resolution.RequestID,
				"outcome", outcome,
				"error", err.Error(),
			)
		}
	}

	if dispatched && d.Dedup != nil {
		if _, err := d.Dedup.CheckAndMark(ctx, ports.ResolutionDedupKey(resolution.RequestID), outcome, d.now(), d.dedupTTL()); err != nil {
			// Unmarked means the consumer re-drives; both effects are
			// idempotent on requestID.
			logger.Warn("resolution dedup mark failed",
				"event", "validation_resolution_dedup_mark_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "application",
				"request_id", resolution.RequestID,
				"error", err.Error(),
			)
		}
	}
}

func (d ResolutionDispatcher) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (d ResolutionDispatcher) dedupTTL() time.Duration {
	if d.DedupTTL <= 0 {
		return 24 * time.Hour
	}
	return d.DedupTTL
}
