package unit

import (
	"context"
	"sync"
	"testing"
	"time"

	validationengine "almoner/contexts/mutual-aid/validation-engine"
	"almoner/contexts/mutual-aid/validation-engine/application/workers"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
	topics []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

type captureSubscriber struct {
	handler ports.EventHandler
}

func (s *captureSubscriber) Subscribe(_ context.Context, _ string, _ string, handler ports.EventHandler) error {
	s.handler = handler
	return nil
}

func TestOutboxRelayPublishesRecordedAndResolvedEvents(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-20", "member-9", 3, 20)
	seedValidator(module, "validator-1", 0.9)
	seedValidator(module, "validator-2", 0.9)
	submitVote(t, module, "validator-1", "req-20", "approve")
	submitVote(t, module, "validator-2", "req-20", "approve")

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay cycle failed: %v", err)
	}

	// Two vote-recorded events plus the resolution event.
	if len(publisher.events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(publisher.events))
	}
	recorded, resolved := 0, 0
	for i, event := range publisher.events {
		switch event.EventType {
		case "validation.recorded":
			recorded++
		case "aid_request.resolved":
			resolved++
		}
		if publisher.topics[i] != event.EventType {
			t.Fatalf("topic %q does not match event type %q", publisher.topics[i], event.EventType)
		}
	}
	if recorded != 2 || resolved != 1 {
		t.Fatalf("expected 2 recorded + 1 resolved, got %d/%d", recorded, resolved)
	}

	// A second cycle finds nothing left.
	publisher.events = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay cycle failed: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("published rows must not be relayed twice, got %d", len(publisher.events))
	}
}

func TestResolvedRequestFundsAndNotifiesOnceAcrossWorkerCycle(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-22", "member-9", 3, 20)
	seedValidator(module, "validator-1", 0.9)
	seedValidator(module, "validator-2", 0.9)
	submitVote(t, module, "validator-1", "req-22", "approve")
	submitVote(t, module, "validator-2", "req-22", "approve")

	// Inline dispatch already ran during the resolving vote.
	if funding := module.Store.FundingCalls(); len(funding) != 1 {
		t.Fatalf("inline dispatch must fund once, got %v", funding)
	}

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay cycle failed: %v", err)
	}

	subscriber := &captureSubscriber{}
	consumer := workers.ResolutionConsumer{
		Subscriber:    subscriber,
		Dedup:         module.Store,
		Funding:       module.Store,
		Notifications: module.Store,
		Clock:         module.Store,
		DedupTTL:      time.Hour,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	for _, event := range publisher.events {
		if event.EventType != "aid_request.resolved" {
			continue
		}
		if err := subscriber.handler(context.Background(), event); err != nil {
			t.Fatalf("consumer delivery failed: %v", err)
		}
	}

	if funding := module.Store.FundingCalls(); len(funding) != 1 {
		t.Fatalf("one resolution must fund exactly once across inline dispatch and worker, got %v", funding)
	}
	if notifications := module.Store.Notifications(); len(notifications) != 1 {
		t.Fatalf("one resolution must notify exactly once across inline dispatch and worker, got %v", notifications)
	}
}

func TestResolutionConsumerRedrivesFailedInlineDispatch(t *testing.T) {
	module, _ := newValidationHarness()
	seedOpenRequest(module, "req-23", "member-9", 3, 20)
	seedValidator(module, "validator-1", 0.9)
	seedValidator(module, "validator-2", 0.9)
	submitVote(t, module, "validator-1", "req-23", "approve")

	// Funding outage during the resolving vote leaves the dedup key clear.
	module.Store.FailFunding = true
	submitVote(t, module, "validator-2", "req-23", "approve")
	if funding := module.Store.FundingCalls(); len(funding) != 0 {
		t.Fatalf("failed inline dispatch must not record a funding call, got %v", funding)
	}
	module.Store.FailFunding = false

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay cycle failed: %v", err)
	}

	subscriber := &captureSubscriber{}
	consumer := workers.ResolutionConsumer{
		Subscriber:    subscriber,
		Dedup:         module.Store,
		Funding:       module.Store,
		Notifications: module.Store,
		Clock:         module.Store,
		DedupTTL:      time.Hour,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	for _, event := range publisher.events {
		if event.EventType != "aid_request.resolved" {
			continue
		}
		if err := subscriber.handler(context.Background(), event); err != nil {
			t.Fatalf("consumer delivery failed: %v", err)
		}
	}

	if funding := module.Store.FundingCalls(); len(funding) != 1 {
		t.Fatalf("worker must re-drive the failed funding call once, got %v", funding)
	}
}

func TestResolutionConsumerDeduplicatesReplays(t *testing.T) {
	store := validationengine.NewInMemoryModule(nil, nil).Store
	subscriber := &captureSubscriber{}
	consumer := workers.ResolutionConsumer{
		Subscriber:    subscriber,
		Dedup:         store,
		Funding:       store,
		Notifications: store,
		Clock:         store,
		DedupTTL:      time.Hour,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	if subscriber.handler == nil {
		t.Fatalf("consumer did not register a handler")
	}

	event := ports.EventEnvelope{
		EventID:   "evt-1",
		EventType: "aid_request.resolved",
		Payload: map[string]any{
			"request_id": "req-21",
			"outcome":    "approved",
		},
	}
	for i := 0; i < 3; i++ {
		if err := subscriber.handler(context.Background(), event); err != nil {
			t.Fatalf("handler failed on delivery %d: %v", i, err)
		}
	}

	if funding := store.FundingCalls(); len(funding) != 1 {
		t.Fatalf("replayed event must fund once, got %v", funding)
	}
	if notifications := store.Notifications(); len(notifications) != 1 {
		t.Fatalf("replayed event must notify once, got %v", notifications)
	}
}

func TestResolutionConsumerDropsMalformedEvents(t *testing.T) {
	store := validationengine.NewInMemoryModule(nil, nil).Store
	subscriber := &captureSubscriber{}
	consumer := workers.ResolutionConsumer{
		Subscriber:    subscriber,
		Dedup:         store,
		Funding:       store,
		Notifications: store,
		Clock:         store,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}

	malformed := ports.EventEnvelope{
		EventID:   "evt-2",
		EventType: "aid_request.resolved",
		Payload:   map[string]any{"outcome": "maybe"},
	}
	if err := subscriber.handler(context.Background(), malformed); err != nil {
		t.Fatalf("malformed event must be dropped, not retried: %v", err)
	}
	if len(store.FundingCalls()) != 0 || len(store.Notifications()) != 0 {
		t.Fatalf("malformed event must have no side effects")
	}
}
