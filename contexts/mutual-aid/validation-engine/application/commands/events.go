package commands

import (
	"encoding/json"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/ports"
)

const (
	EventValidationRecorded = "validation.recorded"
	EventRequestResolved    = "aid_request.resolved"
)

// Command-side events are partitioned by request so request-scoped consumers
// observe them in acceptance order.
func newValidationEnvelope(
	eventID string,
	eventType string,
	entityType string,
	entityID string,
	occurredAt time.Time,
	payload map[string]any,
) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "validation-engine",
		OccurredAtUTC:  occurredAt.UTC(),
		CorrelationID:  eventID,
		EntityType:     entityType,
		EntityID:       entityID,
		PayloadVersion: 1,
		Payload:        payload,
	}
}

func outboxMessageFor(envelope ports.EventEnvelope, partitionKey string) (ports.OutboxMessage, error) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return ports.OutboxMessage{}, err
	}
	return ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		CreatedAt:    envelope.OccurredAtUTC,
	}, nil
}
