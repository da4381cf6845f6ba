package entities

import "time"

type VoteDecision string

const (
	VoteDecisionApprove VoteDecision = "approve"
	VoteDecisionReject  VoteDecision = "reject"
)

// ValidationVote is one validator's verdict on one aid request. The
// (RequestID, ValidatorID) pair is unique; the store enforces it.
type ValidationVote struct {
	VoteID            string
	RequestID         string
	ValidatorID       string
	Decision          VoteDecision
	ConfidenceScore   float64
	Reason            string
	ReviewTimeSeconds int
	IPAddress         string
	CreatedAt         time.Time
}

// ValidatorSnapshot is the profile-store view of a validator at vote time.
// The profile service owns these fields; this engine only reads them.
type ValidatorSnapshot struct {
	ValidatorID        string
	ReputationScore    float64
	ValidationAccuracy float64
	IsActiveValidator  bool
	TotalValidations   int
}

// AidRequestView is the request projection the engine votes against.
type AidRequestView struct {
	RequestID     string
	RequesterID   string
	Amount        float64
	SeverityLevel int
	Category      string
	Urgency       string
	Status        string
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

// RequesterProfile is the anonymized requester info shown to validators.
type RequesterProfile struct {
	WalletAddress      string
	ReputationScore    float64
	TotalContributions float64
	VerificationStatus string
	MemberSince        time.Time
}

// ValidatorStats summarizes a validator's voting record for display.
type ValidatorStats struct {
	TotalValidations    int
	RecentValidations   int
	ApprovedValidations int
	ApprovalRate        float64
}
