package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	aidrequestservice "almoner/contexts/mutual-aid/aid-request-service"
	"almoner/contexts/mutual-aid/aid-request-service/domain/entities"
	requesterrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	requestports "almoner/contexts/mutual-aid/aid-request-service/ports"
	requesthttp "almoner/contexts/mutual-aid/aid-request-service/transport/http"
)

const requestReason = "lost my job last month and rent is due next week"

// staticTallies satisfies the tally-reader port with canned aggregates.
type staticTallies map[string]requestports.ValidationSummary

func (t staticTallies) ValidationSummary(_ context.Context, requestID string) (requestports.ValidationSummary, error) {
	return t[requestID], nil
}

func newRequestModule(tallies requestports.ValidationTallyReader) aidrequestservice.Module {
	if tallies == nil {
		tallies = staticTallies{}
	}
	return aidrequestservice.NewInMemoryModule(tallies, nil)
}

func createRequest(t *testing.T, module aidrequestservice.Module, requesterID string) requesthttp.RequestResponse {
	t.Helper()
	resp, err := module.Handler.CreateRequestHandler(context.Background(), requesterID, requesthttp.CreateRequestRequest{
		Amount:        120,
		SeverityLevel: 6,
		Category:      "housing",
		Urgency:       "high",
		Reason:        requestReason,
		PublicMessage: "short on rent this month",
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	return resp
}

func TestRequestLifecycleCreateCancelResubmit(t *testing.T) {
	module := newRequestModule(nil)

	created := createRequest(t, module, "member-1")
	if created.Status != "pending" || !created.IsOwner || !created.CanCancel {
		t.Fatalf("unexpected created response: %+v", created)
	}
	if created.ExpiresAt == "" {
		t.Fatalf("created request must carry an expiry")
	}

	// One open request per member.
	_, err := module.Handler.CreateRequestHandler(context.Background(), "member-1", requesthttp.CreateRequestRequest{
		Amount:        50,
		SeverityLevel: 3,
		Category:      "food",
		Urgency:       "medium",
		Reason:        requestReason,
	})
	if !errors.Is(err, requesterrors.ErrOpenRequestExists) {
		t.Fatalf("expected open-request conflict, got %v", err)
	}

	cancelled, err := module.Handler.CancelRequestHandler(context.Background(), created.RequestID, "member-1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != "cancelled" || cancelled.CancelledAt == "" {
		t.Fatalf("unexpected cancel response: %+v", cancelled)
	}

	// Cancellation reopens the submission slot.
	createRequest(t, module, "member-1")
}

func TestCreateRequestValidation(t *testing.T) {
	module := newRequestModule(nil)
	bad := []requesthttp.CreateRequestRequest{
		{Amount: 120, SeverityLevel: 6, Category: "housing", Urgency: "soon", Reason: requestReason},
		{Amount: 120, SeverityLevel: 6, Category: "housing", Urgency: "high", Reason: "too short"},
		{Amount: 0, SeverityLevel: 6, Category: "housing", Urgency: "high", Reason: requestReason},
		{Amount: 10001, SeverityLevel: 6, Category: "housing", Urgency: "high", Reason: requestReason},
		{Amount: 120, SeverityLevel: 11, Category: "housing", Urgency: "high", Reason: requestReason},
		{Amount: 120, SeverityLevel: 6, Category: "", Urgency: "high", Reason: requestReason},
	}
	for i, req := range bad {
		if _, err := module.Handler.CreateRequestHandler(context.Background(), "member-1", req); !errors.Is(err, requesterrors.ErrInvalidRequestInput) {
			t.Errorf("case %d: expected invalid input, got %v", i, err)
		}
	}

	if _, err := module.Handler.CreateRequestHandler(context.Background(), "", requesthttp.CreateRequestRequest{
		Amount: 120, SeverityLevel: 6, Category: "housing", Urgency: "high", Reason: requestReason,
	}); !errors.Is(err, requesterrors.ErrAuthenticationRequired) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestGetRequestHidesPleaFromNonOwners(t *testing.T) {
	tallies := staticTallies{}
	module := newRequestModule(tallies)
	created := createRequest(t, module, "member-1")
	tallies[created.RequestID] = requestports.ValidationSummary{
		Total:    2,
		Approved: 1,
		Rejected: 1,
		Required: 3,
	}

	owner, err := module.Handler.GetRequestHandler(context.Background(), created.RequestID, "member-1")
	if err != nil {
		t.Fatalf("owner get failed: %v", err)
	}
	if !owner.IsOwner || owner.Reason == "" {
		t.Fatalf("owner must see the plea text: %+v", owner)
	}
	if owner.Summary.Total != 2 || owner.Summary.Required != 3 {
		t.Fatalf("unexpected tally: %+v", owner.Summary)
	}

	other, err := module.Handler.GetRequestHandler(context.Background(), created.RequestID, "member-2")
	if err != nil {
		t.Fatalf("non-owner get failed: %v", err)
	}
	if other.IsOwner || other.CanCancel {
		t.Fatalf("non-owner flags wrong: %+v", other)
	}
	if other.Reason != "" {
		t.Fatalf("plea text must be owner-only, got %q", other.Reason)
	}
	if other.PublicMessage == "" {
		t.Fatalf("public message must remain visible")
	}
}

func TestCancelRequestAuthorization(t *testing.T) {
	module := newRequestModule(nil)
	created := createRequest(t, module, "member-1")

	if _, err := module.Handler.CancelRequestHandler(context.Background(), created.RequestID, "member-2"); !errors.Is(err, requesterrors.ErrNotRequestOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}

	resolved := time.Now().UTC()
	module.Store.SetRequest(entities.AidRequest{
		RequestID:   "req-approved",
		RequesterID: "member-3",
		Amount:      40,
		Status:      entities.RequestStatusApproved,
		CreatedAt:   resolved.Add(-time.Hour),
		UpdatedAt:   resolved,
		ResolvedAt:  &resolved,
	})
	if _, err := module.Handler.CancelRequestHandler(context.Background(), "req-approved", "member-3"); !errors.Is(err, requesterrors.ErrCannotCancel) {
		t.Fatalf("approved request must not be cancellable, got %v", err)
	}

	if _, err := module.Handler.CancelRequestHandler(context.Background(), "req-missing", "member-1"); !errors.Is(err, requesterrors.ErrRequestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMyRequestsStats(t *testing.T) {
	module := newRequestModule(nil)
	now := time.Now().UTC()
	seed := []entities.AidRequest{
		{RequestID: "r1", RequesterID: "member-1", Amount: 100, Status: entities.RequestStatusCompleted, CreatedAt: now.Add(-60 * 24 * time.Hour), UpdatedAt: now},
		{RequestID: "r2", RequesterID: "member-1", Amount: 80, Status: entities.RequestStatusApproved, CreatedAt: now.Add(-10 * 24 * time.Hour), UpdatedAt: now},
		{RequestID: "r3", RequesterID: "member-1", Amount: 50, Status: entities.RequestStatusRejected, CreatedAt: now.Add(-5 * 24 * time.Hour), UpdatedAt: now},
		{RequestID: "r4", RequesterID: "member-1", Amount: 20, Status: entities.RequestStatusPending, CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
		{RequestID: "r5", RequesterID: "member-2", Amount: 75, Status: entities.RequestStatusPending, CreatedAt: now, UpdatedAt: now},
	}
	for _, request := range seed {
		module.Store.SetRequest(request)
	}

	resp, err := module.Handler.MyRequestsHandler(context.Background(), "member-1", requestports.MyRequestsFilter{})
	if err != nil {
		t.Fatalf("my requests failed: %v", err)
	}
	if len(resp.Items) != 4 || resp.Pagination.Total != 4 {
		t.Fatalf("expected the caller's four requests, got %+v", resp.Pagination)
	}
	stats := resp.Stats
	if stats.TotalRequests != 4 || stats.PendingRequests != 1 || stats.ApprovedRequests != 1 ||
		stats.CompletedRequests != 1 || stats.RejectedRequests != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TotalApprovedAmount != 180 {
		t.Fatalf("approved amount = %v, want 180", stats.TotalApprovedAmount)
	}
	if stats.CanSubmitNew {
		t.Fatalf("open pending request must block new submissions")
	}

	filtered, err := module.Handler.MyRequestsHandler(context.Background(), "member-1", requestports.MyRequestsFilter{Status: "rejected"})
	if err != nil {
		t.Fatalf("filtered my requests failed: %v", err)
	}
	if len(filtered.Items) != 1 || filtered.Items[0].RequestID != "r3" {
		t.Fatalf("unexpected filtered items: %+v", filtered.Items)
	}
}
