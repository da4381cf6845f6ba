package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "almoner/contexts/mutual-aid/validation-engine/application"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus. Rows are
// marked published only after a successful publish, and the relay stops on
// the first failure so the next cycle reprocesses the remainder.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "validation_outbox_list_failed",
			"module", "mutual-aid/validation-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "validation_outbox_decode_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "validation_outbox_publish_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "validation_outbox_mark_published_failed",
				"module", "mutual-aid/validation-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("outbox relay cycle completed",
		"event", "validation_outbox_relay_completed",
		"module", "mutual-aid/validation-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
