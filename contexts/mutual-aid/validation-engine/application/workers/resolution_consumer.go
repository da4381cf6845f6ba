package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "almoner/contexts/mutual-aid/validation-engine/application"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

const (
	requestResolvedTopic = "aid_request.resolved"
	defaultResolutionCG  = "validation-engine-resolution-cg"
)

// ResolutionConsumer is the out-of-band retry path for resolution side
// effects. The command path already attempted funding/notification inline
// and marks the shared resolution dedup key on success, so this consumer
// only re-drives resolutions whose inline dispatch failed (or never marked).
// Funding and notification are idempotent on requestID, so the rare
// overlapping delivery is safe.
type ResolutionConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Funding       ports.FundingInitiator
	Notifications ports.Notifier
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c ResolutionConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultResolutionCG
	}
	if err := c.Subscriber.Subscribe(ctx, requestResolvedTopic, group, c.handleResolved); err != nil {
		logger.Error("resolution consumer subscribe failed",
			"event", "validation_resolution_consumer_subscribe_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "worker",
			"topic", requestResolvedTopic,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("resolution consumer subscription active",
		"event", "validation_resolution_consumer_started",
		"module", "mutual-aid/validation-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c ResolutionConsumer) handleResolved(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	requestID, _ := event.Payload["request_id"].(string)
	outcome, _ := event.Payload["outcome"].(string)
	if strings.TrimSpace(requestID) == "" || (outcome != "approved" && outcome != "rejected") {
		logger.Warn("resolution event missing fields; dropping",
			"event", "validation_resolution_event_malformed",
			"module", "mutual-aid/validation-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	if c.Dedup != nil {
		fresh, err := c.Dedup.CheckAndMark(ctx, ports.ResolutionDedupKey(requestID), hashEnvelope(event), c.now(), c.dedupTTL())
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
	}

	if outcome == "approved" && c.Funding != nil {
		if err := c.Funding.Initiate(ctx, requestID); err != nil {
			logger.Error("funding retry failed",
				"event", "validation_funding_retry_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "worker",
				"request_id", requestID,
				"error", err.Error(),
			)
			return err
		}
	}
	if c.Notifications != nil {
		if err := c.Notifications.Notify(ctx, requestID, outcome); err != nil {
			logger.Error("notification retry failed",
				"event", "validation_notify_retry_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "worker",
				"request_id", requestID,
				"outcome", outcome,
				"error", err.Error(),
			)
			return err
		}
	}
	return nil
}

func (c ResolutionConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c ResolutionConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 24 * time.Hour
	}
	return c.DedupTTL
}

func hashEnvelope(event ports.EventEnvelope) string {
	raw, _ := json.Marshal(event.Payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
