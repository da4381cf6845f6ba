package entities

import "testing"

func TestCanTransitionClosedStateMachine(t *testing.T) {
	allowed := []struct {
		from RequestStatus
		to   RequestStatus
	}{
		{RequestStatusPending, RequestStatusUnderReview},
		{RequestStatusPending, RequestStatusApproved},
		{RequestStatusPending, RequestStatusRejected},
		{RequestStatusPending, RequestStatusCancelled},
		{RequestStatusPending, RequestStatusExpired},
		{RequestStatusUnderReview, RequestStatusApproved},
		{RequestStatusUnderReview, RequestStatusRejected},
		{RequestStatusUnderReview, RequestStatusCancelled},
		{RequestStatusApproved, RequestStatusCompleted},
		{RequestStatusApproved, RequestStatusExpired},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from RequestStatus
		to   RequestStatus
	}{
		{RequestStatusUnderReview, RequestStatusExpired},
		{RequestStatusApproved, RequestStatusCancelled},
		{RequestStatusRejected, RequestStatusPending},
		{RequestStatusCancelled, RequestStatusPending},
		{RequestStatusCompleted, RequestStatusExpired},
		{RequestStatusExpired, RequestStatusApproved},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestIsOpen(t *testing.T) {
	open := []RequestStatus{RequestStatusPending, RequestStatusUnderReview}
	for _, status := range open {
		if !status.IsOpen() {
			t.Errorf("expected %s to be open", status)
		}
	}
	closed := []RequestStatus{RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled, RequestStatusExpired}
	for _, status := range closed {
		if status.IsOpen() {
			t.Errorf("expected %s to be closed", status)
		}
	}
}

func TestParseStatusAndUrgency(t *testing.T) {
	if status, ok := ParseStatus(" Under_Review "); !ok || status != RequestStatusUnderReview {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
	if _, ok := ParseStatus("funded"); ok {
		t.Fatalf("unknown status must not parse")
	}
	if urgency, ok := ParseUrgency("CRITICAL"); !ok || urgency != RequestUrgencyCritical {
		t.Fatalf("ParseUrgency failed: %v %v", urgency, ok)
	}
	if _, ok := ParseUrgency("urgent"); ok {
		t.Fatalf("unknown urgency must not parse")
	}
}

func TestValidateCreate(t *testing.T) {
	valid := AidRequest{
		RequesterID:   "member-1",
		Amount:        25,
		SeverityLevel: 4,
		Category:      "medical",
		Urgency:       RequestUrgencyHigh,
		Reason:        "unexpected clinic bill after an accident",
	}
	if !valid.ValidateCreate() {
		t.Fatalf("expected valid request")
	}

	broken := valid
	broken.SeverityLevel = 11
	if broken.ValidateCreate() {
		t.Fatalf("severity above ten must fail")
	}
	broken = valid
	broken.Amount = 0
	if broken.ValidateCreate() {
		t.Fatalf("zero amount must fail")
	}
	broken = valid
	broken.Reason = "   "
	if broken.ValidateCreate() {
		t.Fatalf("blank reason must fail")
	}
}
