package consensus

import "almoner/contexts/mutual-aid/validation-engine/domain/entities"

// Quorum tiers. Severity and amount are evaluated independently and the
// more demanding tier wins.
const (
	highSeverity = 8
	highAmount   = 100.0
	midSeverity  = 6
	midAmount    = 50.0

	highTierRequired = 5
	midTierRequired  = 3
	baseRequired     = 2
)

// Outcome is derived fresh from the persisted vote set after every accepted
// vote. It is advisory; the request store performs the actual transition.
type Outcome struct {
	RequestID    string
	Required     int
	ApproveCount int
	RejectCount  int
	TotalVotes   int
	Decided      bool
	Approved     bool
}

// RequiredApprovals returns the quorum size for a request.
func RequiredApprovals(severityLevel int, amount float64) int {
	if severityLevel >= highSeverity || amount >= highAmount {
		return highTierRequired
	}
	if severityLevel >= midSeverity || amount >= midAmount {
		return midTierRequired
	}
	return baseRequired
}

// Evaluate applies the decision rule to the current vote set.
//
// A request is approved once approvals reach quorum. It is rejected early
// once totalVotes >= required and rejectCount > totalVotes - required. The
// early-reject rule is a convergence heuristic inherited from the legacy
// engine: it does not prove that later votes could not have reached quorum,
// and it is kept bit-for-bit because changing it changes approval and payout
// behavior.
func Evaluate(votes []entities.ValidationVote, severityLevel int, amount float64) Outcome {
	outcome := Outcome{
		Required:   RequiredApprovals(severityLevel, amount),
		TotalVotes: len(votes),
	}
	for _, vote := range votes {
		switch vote.Decision {
		case entities.VoteDecisionApprove:
			outcome.ApproveCount++
		case entities.VoteDecisionReject:
			outcome.RejectCount++
		}
	}
	if len(votes) > 0 {
		outcome.RequestID = votes[0].RequestID
	}

	if outcome.ApproveCount >= outcome.Required {
		outcome.Decided = true
		outcome.Approved = true
		return outcome
	}
	if outcome.TotalVotes >= outcome.Required &&
		outcome.RejectCount > outcome.TotalVotes-outcome.Required {
		outcome.Decided = true
		outcome.Approved = false
		return outcome
	}
	return outcome
}
