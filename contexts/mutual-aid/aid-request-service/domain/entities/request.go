package entities

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "pending"
	RequestStatusUnderReview RequestStatus = "under_review"
	RequestStatusApproved    RequestStatus = "approved"
	RequestStatusRejected    RequestStatus = "rejected"
	RequestStatusCompleted   RequestStatus = "completed"
	RequestStatusCancelled   RequestStatus = "cancelled"
	RequestStatusExpired     RequestStatus = "expired"
)

type RequestUrgency string

const (
	RequestUrgencyLow      RequestUrgency = "low"
	RequestUrgencyMedium   RequestUrgency = "medium"
	RequestUrgencyHigh     RequestUrgency = "high"
	RequestUrgencyCritical RequestUrgency = "critical"
)

// validTransitions is the closed state machine. Consensus resolves straight
// out of pending or under_review; everything past approved/rejected is
// terminal except the approved -> completed/expired tail.
var validTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:     {RequestStatusUnderReview, RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusUnderReview: {RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusApproved:    {RequestStatusCompleted, RequestStatusExpired},
	RequestStatusRejected:    {},
	RequestStatusCompleted:   {},
	RequestStatusCancelled:   {},
	RequestStatusExpired:     {},
}

func CanTransition(from RequestStatus, to RequestStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request still accepts validator votes and
// requester cancellation.
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusPending || s == RequestStatusUnderReview
}

func ParseStatus(raw string) (RequestStatus, bool) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, known := validTransitions[status]
	return status, known
}

func ParseUrgency(raw string) (RequestUrgency, bool) {
	switch urgency := RequestUrgency(strings.ToLower(strings.TrimSpace(raw))); urgency {
	case RequestUrgencyLow, RequestUrgencyMedium, RequestUrgencyHigh, RequestUrgencyCritical:
		return urgency, true
	default:
		return "", false
	}
}

// AidRequest is a member's plea for community funds.
type AidRequest struct {
	RequestID     string
	RequesterID   string
	Amount        float64
	SeverityLevel int
	Category      string
	Urgency       RequestUrgency
	Reason        string
	PublicMessage string
	Status        RequestStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     *time.Time
	ResolvedAt    *time.Time
	CancelledAt   *time.Time
	CompletedAt   *time.Time
}

func (r AidRequest) ValidateCreate() bool {
	return strings.TrimSpace(r.RequesterID) != "" &&
		r.Amount > 0 &&
		r.SeverityLevel >= 1 && r.SeverityLevel <= 10 &&
		strings.TrimSpace(r.Category) != "" &&
		r.Urgency != "" &&
		strings.TrimSpace(r.Reason) != ""
}

// StatusChange is one audit row of the request lifecycle.
type StatusChange struct {
	RequestID  string
	FromStatus RequestStatus
	ToStatus   RequestStatus
	ChangedBy  string
	Reason     string
	ChangedAt  time.Time
}

// RequesterStats summarizes a member's own request record.
type RequesterStats struct {
	TotalRequests       int
	PendingRequests     int
	ApprovedRequests    int
	CompletedRequests   int
	RejectedRequests    int
	RecentRequests      int
	TotalApprovedAmount float64
	SuccessRate         float64
	CanSubmitNew        bool
}
